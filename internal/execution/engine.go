// Package execution runs a routing decision against the responders and
// merges what comes back.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"lucy/internal/domains"
	"lucy/internal/execution/metrics"
	"lucy/internal/responder"
	"lucy/internal/routing"
	"lucy/pkg/requestcontext"
)

// DefaultCallTimeout bounds each responder invocation.
const DefaultCallTimeout = 60 * time.Second

// PrimaryResultKey is the context key under which sequential execution hands
// the primary's answer to secondaries.
const PrimaryResultKey = "primary_result"

// ResponderSource resolves the responder for a domain.
type ResponderSource interface {
	Get(d domains.Domain) (responder.Responder, bool)
}

// Engine is safe for concurrent use.
type Engine struct {
	responders  ResponderSource
	callTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.callTimeout = d
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

func New(responders ResponderSource, opts ...Option) (*Engine, error) {
	if responders == nil {
		return nil, fmt.Errorf("responder source is required")
	}
	e := &Engine{
		responders:  responders,
		callTimeout: DefaultCallTimeout,
		logger:      slog.Default(),
		tracer:      otel.Tracer("lucy/execution"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute runs decision for query. It fails only when no targeted responder
// produced a result; the error then matches responder.ErrResponderUnavailable.
func (e *Engine) Execute(ctx context.Context, decision routing.Decision, query string, qctx map[string]any) (*AggregatedResult, error) {
	var outcomes []outcome
	switch decision.Strategy {
	case routing.StrategySingle:
		outcomes = []outcome{e.invoke(ctx, decision.Primary, decision.Strategy, query, qctx)}
	case routing.StrategySequential:
		outcomes = e.runSequential(ctx, decision, query, qctx)
	case routing.StrategyParallel:
		outcomes = e.runParallel(ctx, decision, query, qctx)
	default:
		return nil, fmt.Errorf("unknown strategy %q", decision.Strategy)
	}

	result, err := merge(decision.Strategy, outcomes)
	switch {
	case err != nil:
		e.metrics.IncExecution(string(decision.Strategy), "failed")
		e.logger.WarnContext(ctx, "execution failed",
			"request_id", requestcontext.RequestID(ctx),
			"strategy", decision.Strategy,
			"error", err,
		)
	case result.Partial():
		e.metrics.IncExecution(string(decision.Strategy), "partial")
		e.logger.InfoContext(ctx, "partial execution",
			"request_id", requestcontext.RequestID(ctx),
			"strategy", decision.Strategy,
			"contributors", result.Domains,
			"failed", len(result.Errors),
		)
	default:
		e.metrics.IncExecution(string(decision.Strategy), "complete")
	}
	return result, err
}

// runSequential invokes the primary, then each secondary in order with the
// primary's answer folded into a copy of the caller's context.
func (e *Engine) runSequential(ctx context.Context, decision routing.Decision, query string, qctx map[string]any) []outcome {
	primary := e.invoke(ctx, decision.Primary, decision.Strategy, query, qctx)
	outcomes := []outcome{primary}

	enriched := make(map[string]any, len(qctx)+1)
	for k, v := range qctx {
		enriched[k] = v
	}
	if primary.err == nil {
		enriched[PrimaryResultKey] = primaryPayload(primary.result)
	}

	for _, d := range decision.Secondary {
		outcomes = append(outcomes, e.invoke(ctx, d, decision.Strategy, query, enriched))
	}
	return outcomes
}

func primaryPayload(r *responder.Result) map[string]any {
	sources := make([]responder.Source, len(r.Sources))
	copy(sources, r.Sources)
	return map[string]any{
		"domain":     string(r.Domain),
		"response":   r.Response,
		"confidence": r.Confidence,
		"sources":    sources,
		"reasoning":  r.Reasoning,
	}
}

func (e *Engine) invoke(ctx context.Context, d domains.Domain, strategy routing.Strategy, query string, qctx map[string]any) outcome {
	ctx, span := e.tracer.Start(ctx, "responder.query", trace.WithAttributes(
		attribute.String("lucy.domain", string(d)),
		attribute.String("lucy.strategy", string(strategy)),
	))
	defer span.End()

	start := time.Now()
	res, err := e.call(ctx, d, query, qctx)
	latency := time.Since(start)

	if err != nil {
		re := responder.Classify(d, err)
		span.RecordError(re)
		span.SetStatus(codes.Error, string(re.Category))
		e.metrics.ObserveCall(string(d), "failure", latency)
		e.metrics.IncFailure(string(d), string(re.Category))
		e.logger.WarnContext(ctx, "responder call failed",
			"request_id", requestcontext.RequestID(ctx),
			"domain", d,
			"category", re.Category,
			"duration_ms", latency.Milliseconds(),
			"error", err,
		)
		return outcome{domain: d, err: re, latency: latency}
	}
	e.metrics.ObserveCall(string(d), "success", latency)
	return outcome{domain: d, result: res, latency: latency}
}

func (e *Engine) call(ctx context.Context, d domains.Domain, query string, qctx map[string]any) (*responder.Result, error) {
	resp, ok := e.responders.Get(d)
	if !ok {
		return nil, responder.ErrNotConfigured
	}
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	res, err := resp.Query(callCtx, query, qctx)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, responder.NewError(responder.CategoryBadResponse, d, "empty result", nil)
	}
	out := *res
	out.Domain = d
	return &out, nil
}
