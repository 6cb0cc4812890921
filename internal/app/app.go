// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/asn-report-crawler/internal/aggregator"
	"github.com/JakeFAU/asn-report-crawler/internal/asn"
	"github.com/JakeFAU/asn-report-crawler/internal/clock/system"
	"github.com/JakeFAU/asn-report-crawler/internal/config"
	"github.com/JakeFAU/asn-report-crawler/internal/directory"
	collyfetcher "github.com/JakeFAU/asn-report-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/asn-report-crawler/internal/hash/sha256"
	"github.com/JakeFAU/asn-report-crawler/internal/id/uuid"
	"github.com/JakeFAU/asn-report-crawler/internal/logging"
	"github.com/JakeFAU/asn-report-crawler/internal/report"
	"github.com/JakeFAU/asn-report-crawler/internal/telemetry"
)

// Aggregator builds a merged report for the selected countries.
type Aggregator interface {
	Aggregate(ctx context.Context, filter []string) (aggregator.Result, error)
}

// ReportWriter persists, prints and clears reports.
type ReportWriter interface {
	Write(report asn.Report) (string, error)
	Print(out io.Writer, report asn.Report) error
	Clear() (int, error)
}

// App holds the services one CLI invocation needs: the logger, the
// aggregation pipeline and the report writer.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	aggregator *aggregator.Aggregator
	writer     *report.Writer
	tracer     *sdktrace.TracerProvider
}

// GetConfig returns the validated configuration the app was built from.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetAggregator returns the country report aggregator.
func (a *App) GetAggregator() Aggregator {
	return a.aggregator
}

// GetWriter returns the report file writer.
func (a *App) GetWriter() ReportWriter {
	return a.writer
}

// New wires every service from cfg. It fails fast if any of them cannot be built.
func New(cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := NewWithLogger(cfg, logger)
	if err != nil {
		_ = logger.Sync() //nolint:errcheck // best-effort flush
		return nil, err
	}
	return a, nil
}

// NewWithLogger wires every service from cfg using the supplied logger.
func NewWithLogger(cfg config.Config, logger *zap.Logger) (*App, error) {
	tp, err := telemetry.InitTracerProvider(context.Background(), telemetry.ServiceName, logger.Named("trace"))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	headers := http.Header{}
	if cfg.Crawler.AcceptLanguage != "" {
		headers.Set("Accept-Language", cfg.Crawler.AcceptLanguage)
	}
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Crawler.UserAgent,
		Timeout:      cfg.Crawler.RequestTimeout,
		MaxBodyBytes: cfg.Crawler.MaxBodyBytes,
		Headers:      headers,
	}, logger.Named("fetcher"))

	index, err := directory.New(cfg.Source.ListingURL, fetcher, logger.Named("directory"))
	if err != nil {
		return nil, fmt.Errorf("init directory index: %w", err)
	}

	agg := aggregator.New(index, fetcher, uuid.New(), aggregator.Config{
		Concurrency:    cfg.Crawler.Concurrency,
		PageTimeout:    cfg.Crawler.PageTimeout,
		TracerProvider: tp,
	}, logger.Named("aggregator"))

	writer, err := report.New(report.Config{
		Dir:    cfg.Report.Dir,
		Prefix: cfg.Report.Prefix,
	}, system.New(), sha256.New(), logger.Named("report"))
	if err != nil {
		return nil, fmt.Errorf("init report writer: %w", err)
	}

	logger.Debug("application services initialized",
		zap.String("listing_url", cfg.Source.ListingURL),
		zap.String("report_dir", cfg.Report.Dir),
	)
	return &App{
		cfg:        cfg,
		logger:     logger,
		aggregator: agg,
		writer:     writer,
		tracer:     tp,
	}, nil
}

// Close flushes spans and the logger. It is called by a Cobra hook after the command finishes.
func (a *App) Close() {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	// Sync on stderr commonly fails with EINVAL on terminals; nothing useful to do about it.
	_ = a.logger.Sync() //nolint:errcheck // best-effort flush
}
