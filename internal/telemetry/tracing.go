// Package telemetry provides OpenTelemetry tracing setup.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.uber.org/zap"
)

// ServiceName identifies this binary in trace resources.
const ServiceName = "asnreport"

// InitTracerProvider installs a global tracer provider whose finished spans
// are written to logger at debug level.
func InitTracerProvider(ctx context.Context, serviceName string, logger *zap.Logger) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(NewLogSpanProcessor(logger)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}

// LogSpanProcessor logs every ended span. It never blocks the caller.
type LogSpanProcessor struct {
	logger *zap.Logger
}

var _ sdktrace.SpanProcessor = (*LogSpanProcessor)(nil)

// NewLogSpanProcessor returns a processor writing to logger.
func NewLogSpanProcessor(logger *zap.Logger) *LogSpanProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSpanProcessor{logger: logger}
}

// OnStart is a no-op.
func (p *LogSpanProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

// OnEnd logs the span summary.
func (p *LogSpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	if !p.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	fields := []zap.Field{
		zap.String("span", s.Name()),
		zap.String("trace_id", s.SpanContext().TraceID().String()),
		zap.String("span_id", s.SpanContext().SpanID().String()),
		zap.Duration("duration", s.EndTime().Sub(s.StartTime())),
	}
	for _, kv := range s.Attributes() {
		fields = append(fields, zap.String(string(kv.Key), kv.Value.Emit()))
	}
	if st := s.Status(); st.Code == codes.Error {
		fields = append(fields, zap.String("error", st.Description))
	}
	p.logger.Debug("span ended", fields...)
}

// Shutdown is a no-op.
func (p *LogSpanProcessor) Shutdown(context.Context) error { return nil }

// ForceFlush is a no-op.
func (p *LogSpanProcessor) ForceFlush(context.Context) error { return nil }
