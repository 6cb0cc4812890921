// Package collyfetcher implements asn.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/asn-report-crawler/internal/asn"
)

// DefaultUserAgent is sent when Config.UserAgent is empty. bgp.he.net rejects
// the default Go and Colly identifiers.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

const defaultTimeout = 20 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBodyBytes rejects larger responses with asn.ErrFetch. Zero means unlimited.
	MaxBodyBytes int
	Headers      http.Header
}

// Fetcher implements asn.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

type fetchResult struct {
	body []byte
	err  error
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(
		colly.Async(false),
		colly.UserAgent(cfg.UserAgent),
	)
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	// colly truncates at MaxBodySize; one spare byte makes oversize bodies detectable.
	c.MaxBodySize = 0
	if cfg.MaxBodyBytes > 0 {
		c.MaxBodySize = cfg.MaxBodyBytes + 1
	}
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch executes a single HTTP GET and returns the response body.
// Transport errors, non-2xx responses and cancellation wrap asn.ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", asn.ErrFetch, url, err)
	}

	start := time.Now()
	// Clones share the base collector's HTTP client, so nothing here may touch it.
	collector := f.baseCollector.Clone()

	var result fetchResult
	f.configureCollectorHooks(collector, url, &result)

	done := make(chan fetchResult, 1)
	go func() {
		visitErr := collector.Visit(url)
		res := result
		if res.err == nil && visitErr != nil {
			res.err = fmt.Errorf("%w: %s: %w", asn.ErrFetch, url, visitErr)
		}
		done <- res
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", asn.ErrFetch, url, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		if res.body == nil {
			return nil, fmt.Errorf("%w: %s: colly fetch produced no response", asn.ErrFetch, url)
		}
		f.logger.Debug("fetched page",
			zap.String("url", url),
			zap.Int("bytes", len(res.body)),
			zap.Duration("duration", time.Since(start)),
		)
		return res.body, nil
	}
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, url string, result *fetchResult) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		if limit := f.cfg.MaxBodyBytes; limit > 0 && len(r.Body) > limit {
			result.err = fmt.Errorf("%w: %s: body exceeds %d bytes", asn.ErrFetch, url, limit)
			return
		}
		result.body = append([]byte{}, r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		if r != nil && r.StatusCode != 0 {
			result.err = fmt.Errorf("%w: %s: status %d: %w", asn.ErrFetch, url, r.StatusCode, err)
			return
		}
		result.err = fmt.Errorf("%w: %s: %w", asn.ErrFetch, url, err)
	})
}

func (f *Fetcher) copyHeaders(r *colly.Request) {
	for key, values := range f.cfg.Headers {
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}
