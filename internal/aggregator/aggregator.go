// Package aggregator fans country page fetches out concurrently and merges
// the per-page reports once every task has finished.
package aggregator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/asn-report-crawler/internal/asn"
	"github.com/JakeFAU/asn-report-crawler/internal/metrics"
	"github.com/JakeFAU/asn-report-crawler/internal/parser"
)

// Indexer lists the country pages to aggregate.
type Indexer interface {
	References(ctx context.Context, filter []string) ([]asn.PageReference, error)
}

// Config controls fan-out behavior.
type Config struct {
	// Concurrency caps in-flight pages. Zero or less runs every page at once.
	Concurrency int
	// PageTimeout bounds the fetch and parse of a single page. Zero disables it.
	PageTimeout time.Duration
	// TracerProvider supplies spans. Nil uses the global provider.
	TracerProvider trace.TracerProvider
}

const tracerName = "github.com/JakeFAU/asn-report-crawler/internal/aggregator"

// Failure describes a page that was skipped.
type Failure struct {
	Reference asn.PageReference
	Err       error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.Reference.CountryCode, f.Reference.URL, f.Err)
}

// Result is the outcome of one aggregation run.
type Result struct {
	RunID    string
	Report   asn.Report
	Pages    int
	Failed   []Failure
	Duration time.Duration
}

// Aggregator builds a merged report from every selected country page.
type Aggregator struct {
	index   Indexer
	fetcher asn.Fetcher
	ids     asn.IDGenerator
	cfg     Config
	tracer  trace.Tracer
	logger  *zap.Logger
}

// New constructs an Aggregator.
func New(index Indexer, fetcher asn.Fetcher, ids asn.IDGenerator, cfg Config, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Aggregator{
		tracer:  tp.Tracer(tracerName),
		index:   index,
		fetcher: fetcher,
		ids:     ids,
		cfg:     cfg,
		logger:  logger,
	}
}

type pageOutcome struct {
	report asn.Report
	err    error
}

// Aggregate fetches and parses every country page matching filter (all pages
// when empty) and merges them into one report. Pages that fail are skipped and
// listed in Result.Failed. Merging happens in reference order after all tasks
// finish, so a later page overwrites an earlier one on identifier collision.
//
// If ctx is canceled, pages not yet started are reported as failed and the
// partial result is returned together with the context error.
func (a *Aggregator) Aggregate(ctx context.Context, filter []string) (Result, error) {
	start := time.Now()
	runID := a.newRunID()
	logger := a.logger.With(zap.String("run_id", runID))

	ctx, span := a.tracer.Start(ctx, "aggregate", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.StringSlice("filter", filter),
	))
	defer span.End()

	refs, err := a.index.References(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list country reports")
		return Result{RunID: runID}, fmt.Errorf("list country reports: %w", err)
	}
	span.SetAttributes(attribute.Int("pages", len(refs)))
	logger.Info("aggregating country reports", zap.Int("pages", len(refs)), zap.Int("concurrency", a.cfg.Concurrency))

	outcomes := make([]pageOutcome, len(refs))
	var g errgroup.Group
	if a.cfg.Concurrency > 0 {
		g.SetLimit(a.cfg.Concurrency)
	}
	for i, ref := range refs {
		g.Go(func() error {
			outcomes[i] = a.processPage(ctx, ref, logger)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // tasks record errors in their outcome slot

	result := Result{
		RunID:  runID,
		Report: asn.Report{},
		Pages:  len(refs),
	}
	for i, out := range outcomes {
		if out.err != nil {
			result.Failed = append(result.Failed, Failure{Reference: refs[i], Err: out.err})
			continue
		}
		if collisions := result.Report.Merge(out.report); len(collisions) > 0 {
			metrics.ObserveCollisions(len(collisions))
			logger.Warn("identifier collision while merging",
				zap.String("country", refs[i].CountryCode),
				zap.Strings("identifiers", collisions),
			)
		}
	}
	result.Duration = time.Since(start)
	metrics.ObserveAggregation(len(result.Report), result.Duration)

	logger.Info("aggregation finished",
		zap.Int("records", len(result.Report)),
		zap.Int("pages", result.Pages),
		zap.Int("failed", len(result.Failed)),
		zap.Duration("duration", result.Duration),
	)

	span.SetAttributes(
		attribute.Int("records", len(result.Report)),
		attribute.Int("failed", len(result.Failed)),
	)
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "interrupted")
		return result, fmt.Errorf("aggregation interrupted: %w", err)
	}
	return result, nil
}

func (a *Aggregator) processPage(ctx context.Context, ref asn.PageReference, logger *zap.Logger) pageOutcome {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		metrics.ObservePage(ref.CountryCode, metrics.StatusCanceled, 0, 0)
		return pageOutcome{err: err}
	}

	ctx, span := a.tracer.Start(ctx, "page", trace.WithAttributes(
		attribute.String("country", ref.CountryCode),
		attribute.String("url", ref.URL),
	))
	defer span.End()

	pageCtx := ctx
	if a.cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		pageCtx, cancel = context.WithTimeout(ctx, a.cfg.PageTimeout)
		defer cancel()
	}

	report, err := a.fetchAndParse(pageCtx, ref)
	if err != nil {
		status := metrics.StatusFailed
		if errors.Is(err, context.Canceled) {
			status = metrics.StatusCanceled
		}
		metrics.ObservePage(ref.CountryCode, status, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("skipping country page",
			zap.String("country", ref.CountryCode),
			zap.String("url", ref.URL),
			zap.Error(err),
		)
		return pageOutcome{err: err}
	}

	metrics.ObservePage(ref.CountryCode, metrics.StatusOK, len(report), time.Since(start))
	span.SetAttributes(attribute.Int("records", len(report)))
	logger.Debug("parsed country page",
		zap.String("country", ref.CountryCode),
		zap.Int("records", len(report)),
	)
	return pageOutcome{report: report}
}

func (a *Aggregator) fetchAndParse(ctx context.Context, ref asn.PageReference) (asn.Report, error) {
	body, err := a.fetcher.Fetch(ctx, ref.URL)
	if err != nil {
		return nil, err
	}
	return parser.ParseCountryPage(bytes.NewReader(body), ref.CountryCode)
}

func (a *Aggregator) newRunID() string {
	if a.ids == nil {
		return ""
	}
	id, err := a.ids.NewID()
	if err != nil {
		a.logger.Warn("run id generation failed", zap.Error(err))
		return ""
	}
	return id
}
