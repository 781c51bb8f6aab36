// Package orchestrator answers a query end to end: route, execute, gate,
// then record the interaction.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"lucy/internal/domains"
	"lucy/internal/evaluation"
	"lucy/internal/execution"
	"lucy/internal/memory"
	memmodels "lucy/internal/memory/models"
	"lucy/internal/orchestrator/metrics"
	"lucy/internal/responder"
	"lucy/internal/routing"
	dErrors "lucy/pkg/domain-errors"
	"lucy/pkg/requestcontext"
)

const DefaultHealthTimeout = 5 * time.Second

type Service struct {
	router     Router
	executor   Executor
	gate       Gate
	memory     Memory
	errors     ErrorStats
	responders Responders
	evaluator  responder.Evaluator

	healthTimeout time.Duration
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	now           func() time.Time
	startedAt     time.Time

	served atomic.Int64
	failed atomic.Int64
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithHealth enables Health checks against the responders and evaluator.
func WithHealth(responders Responders, evaluator responder.Evaluator, timeout time.Duration) Option {
	return func(s *Service) {
		s.responders = responders
		s.evaluator = evaluator
		if timeout > 0 {
			s.healthTimeout = timeout
		}
	}
}

func WithErrorStats(e ErrorStats) Option {
	return func(s *Service) {
		s.errors = e
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(router Router, executor Executor, gate Gate, memory Memory, opts ...Option) *Service {
	s := &Service{
		router:        router,
		executor:      executor,
		gate:          gate,
		memory:        memory,
		healthTimeout: DefaultHealthTimeout,
		logger:        slog.Default(),
		tracer:        otel.Tracer("lucy/orchestrator"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.now()
	return s
}

// Query routes, executes, and gates one query. Nothing is written to memory
// until the gate has scored the merged answer, and nothing at all once the
// request context is done.
func (s *Service) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "query is required")
	}
	qctx := req.Context
	if qctx == nil {
		qctx = map[string]any{}
	}

	ctx, span := s.tracer.Start(ctx, "orchestrator.query")
	defer span.End()

	decision := s.router.Decide(query, qctx)
	s.metrics.IncDecision(string(decision.Primary), string(decision.Strategy))
	span.SetAttributes(
		attribute.String("lucy.primary", string(decision.Primary)),
		attribute.String("lucy.strategy", string(decision.Strategy)),
		attribute.Bool("lucy.ambiguous", decision.Ambiguous),
	)
	s.logger.InfoContext(ctx, "query routed",
		"request_id", requestcontext.RequestID(ctx),
		"primary", decision.Primary,
		"secondary", decision.Secondary,
		"strategy", decision.Strategy,
		"confidence", decision.Confidence,
		"ambiguous", decision.Ambiguous,
		"reasoning", decision.Reasoning,
	)

	result, err := s.executor.Execute(ctx, decision, query, qctx)
	if err != nil {
		s.failed.Add(1)
		s.metrics.IncQuery("failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "no responder answered")
		return nil, &QueryError{Query: query, Message: "no responder could answer", Err: err}
	}

	if err := s.abandoned(ctx, span); err != nil {
		return nil, err
	}
	verdict := s.gate.Evaluate(ctx, query, result)
	// A request cancelled while the gate ran leaves no interaction behind.
	if err := s.abandoned(ctx, span); err != nil {
		return nil, err
	}
	resp := buildResponse(decision, result, verdict)
	s.SaveInteraction(ctx, query, decision, resp)

	s.served.Add(1)
	if resp.NeedsRefinement {
		s.metrics.IncQuery("refine")
	} else {
		s.metrics.IncQuery("answered")
	}
	span.SetAttributes(attribute.Float64("lucy.quality_score", verdict.QualityScore))
	return resp, nil
}

// abandoned reports a cancelled or expired request context as a timeout.
func (s *Service) abandoned(ctx context.Context, span trace.Span) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	s.failed.Add(1)
	s.metrics.IncQuery("cancelled")
	span.RecordError(err)
	span.SetStatus(codes.Error, "request cancelled")
	s.logger.InfoContext(ctx, "query abandoned before completion",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeTimeout, "query cancelled before it completed")
}

func buildResponse(decision routing.Decision, result *execution.AggregatedResult, verdict evaluation.Result) *QueryResponse {
	resp := &QueryResponse{
		Response:        result.Response,
		Agent:           result.Agent(),
		Domains:         result.Domains,
		Strategy:        result.Strategy,
		Confidence:      result.Confidence,
		Sources:         result.Sources,
		QualityScore:    verdict.QualityScore,
		Evaluated:       !verdict.Fallback,
		NeedsRefinement: verdict.NeedsRefinement(),
		Suggestions:     verdict.Suggestions,
		Issues:          verdict.Issues,
		Routing:         decision,
		Errors:          make(map[domains.Domain]string, len(result.Errors)),
	}
	if resp.Sources == nil {
		resp.Sources = []responder.Source{}
	}
	for d, err := range result.Errors {
		resp.Errors[d] = err.Error()
	}
	return resp
}

// SaveInteraction records the routing outcome of an answered query. A
// failed save is logged, never returned: the memory layer keeps the record
// and retries the durable write.
func (s *Service) SaveInteraction(ctx context.Context, query string, decision routing.Decision, resp *QueryResponse) {
	targets := make([]string, 0, len(resp.Domains))
	for _, d := range resp.Domains {
		targets = append(targets, string(d))
	}
	routedTo := strings.Join(targets, ",")

	_, err := s.memory.Add(ctx, InteractionNamespace, "Query: "+query+"\nRouted to: "+routedTo, memmodels.CategoryRoutingDecision, map[string]any{
		"query":         query,
		"routed_to":     routedTo,
		"strategy":      string(decision.Strategy),
		"quality_score": resp.QualityScore,
	})
	switch {
	case err == nil:
		s.metrics.IncSave("durable")
	case errors.Is(err, memory.ErrPersistence):
		s.metrics.IncSave("pending")
		s.logger.WarnContext(ctx, "interaction kept in memory, durable write pending",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	default:
		s.metrics.IncSave("failed")
		s.logger.ErrorContext(ctx, "failed to save interaction",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// Briefing asks the personal responder for the user's morning briefing. It
// is not gated.
func (s *Service) Briefing(ctx context.Context, userID string) (*execution.AggregatedResult, error) {
	if strings.TrimSpace(userID) == "" {
		userID = DefaultUserID
	}
	decision := routing.Decision{
		Primary:    domains.Personal,
		Strategy:   routing.StrategySingle,
		Confidence: 1,
		Reasoning:  "morning briefing",
	}
	result, err := s.executor.Execute(ctx, decision, BriefingQuery, map[string]any{"user_id": userID})
	if err != nil {
		return nil, &QueryError{Query: BriefingQuery, Message: "personal responder could not build the briefing", Err: err}
	}
	return result, nil
}

// Health checks every routable responder and the evaluator concurrently.
// Any status other than healthy degrades the report.
func (s *Service) Health(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:       StatusHealthy,
		Orchestrator: StatusHealthy,
		Assistants:   make(map[string]string, len(domains.Routable)+1),
		Timestamp:    s.now(),
	}
	var mu sync.Mutex
	set := func(name, status string) {
		mu.Lock()
		defer mu.Unlock()
		report.Assistants[name] = status
		if status != StatusHealthy {
			report.Status = StatusDegraded
		}
	}

	var g errgroup.Group
	ping := func(name string, check func(context.Context) error) {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.healthTimeout)
			defer cancel()
			set(name, checkStatus(check(pctx)))
			return nil
		})
	}
	for _, d := range domains.Routable {
		var r responder.Responder
		ok := false
		if s.responders != nil {
			r, ok = s.responders.Get(d)
		}
		if !ok {
			set(string(d), StatusNotConfigured)
			continue
		}
		ping(string(d), r.Health)
	}
	if s.evaluator != nil {
		ping(string(domains.Evaluator), s.evaluator.Health)
	} else {
		set(string(domains.Evaluator), StatusNotConfigured)
	}
	_ = g.Wait()
	return report
}

func checkStatus(err error) string {
	if err == nil {
		return StatusHealthy
	}
	switch responder.CategoryOf(err) {
	case responder.CategoryUnavailable, responder.CategoryTimeout, responder.CategoryCanceled, responder.CategoryCircuitOpen:
		return StatusUnreachable
	}
	return StatusUnhealthy
}

// Stats summarizes memory, error learning, and traffic since start.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	mem, err := s.memory.AllStats(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read memory stats")
	}
	out := &Stats{
		Memory:           mem,
		ActiveAssistants: []domains.Domain{},
		QueriesServed:    s.served.Load(),
		QueriesFailed:    s.failed.Load(),
		UptimeSeconds:    s.now().Sub(s.startedAt).Seconds(),
	}
	if s.errors != nil {
		if out.Errors, err = s.errors.Stats(ctx); err != nil {
			return nil, err
		}
	}
	if s.responders != nil {
		for _, d := range domains.Routable {
			if _, ok := s.responders.Get(d); ok {
				out.ActiveAssistants = append(out.ActiveAssistants, d)
			}
		}
	}
	return out, nil
}
