// Package tracing installs the process TracerProvider. Spans are sampled and
// finished spans are written to the logger at debug level; a deployment that
// ships traces elsewhere registers its exporter with WithSpanProcessor.
package tracing

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// New builds a provider for service, logs finished spans to log, and makes
// it the global provider so otel.Tracer callers pick it up.
func New(service string, log *slog.Logger, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	base := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", service))),
		sdktrace.WithSpanProcessor(&logProcessor{logger: log}),
	}
	tp := sdktrace.NewTracerProvider(append(base, opts...)...)
	otel.SetTracerProvider(tp)
	return tp
}

// Shutdown flushes and stops tp, logging instead of failing.
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider, log *slog.Logger) {
	if err := tp.Shutdown(ctx); err != nil {
		log.Warn("tracer provider shutdown", "error", err)
	}
}

type logProcessor struct {
	logger *slog.Logger
}

func (p *logProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *logProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	level := slog.LevelDebug
	if s.Status().Code == codes.Error {
		level = slog.LevelWarn
	}
	ctx := context.Background()
	if !p.logger.Enabled(ctx, level) {
		return
	}
	attrs := []any{
		"span", s.Name(),
		"trace_id", s.SpanContext().TraceID().String(),
		"span_id", s.SpanContext().SpanID().String(),
		"duration_ms", s.EndTime().Sub(s.StartTime()).Milliseconds(),
	}
	if s.Parent().IsValid() {
		attrs = append(attrs, "parent_span_id", s.Parent().SpanID().String())
	}
	for _, kv := range s.Attributes() {
		attrs = append(attrs, string(kv.Key), kv.Value.Emit())
	}
	if s.Status().Code == codes.Error {
		attrs = append(attrs, "status", s.Status().Description)
	}
	p.logger.Log(ctx, level, "span finished", attrs...)
}

func (p *logProcessor) Shutdown(context.Context) error   { return nil }
func (p *logProcessor) ForceFlush(context.Context) error { return nil }
