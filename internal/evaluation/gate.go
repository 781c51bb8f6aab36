package evaluation

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"lucy/internal/evaluation/metrics"
	"lucy/internal/execution"
	"lucy/internal/responder"
	"lucy/pkg/requestcontext"
)

const (
	DefaultTimeout = 30 * time.Second

	// FallbackScore is reported when the evaluator cannot be reached.
	FallbackScore     = 0.7
	FallbackReasoning = "evaluator unavailable"
)

var (
	errInvalidVerdict = errors.New("invalid verdict")
	errNothingToScore = errors.New("nothing to evaluate")
)

// Result is the gate's judgement on one aggregated result.
type Result struct {
	QualityScore float64
	Passed       bool
	Issues       []string
	Suggestions  []string
	Reasoning    string
	// Fallback is set when the score did not come from the evaluator.
	Fallback bool
}

// NeedsRefinement signals the caller should refine or escalate.
func (r Result) NeedsRefinement() bool {
	return !r.Passed
}

// Gate never fails a request: evaluator errors degrade to a fixed score.
type Gate struct {
	evaluator responder.Evaluator
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Gate)

func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// NewGate builds a gate. A nil evaluator makes every evaluation a fallback.
func NewGate(evaluator responder.Evaluator, opts ...Option) *Gate {
	g := &Gate{
		evaluator: evaluator,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) Evaluate(ctx context.Context, query string, result *execution.AggregatedResult) Result {
	start := time.Now()
	verdict, err := g.ask(ctx, query, result)
	if err != nil {
		g.metrics.IncFallback()
		g.logger.WarnContext(ctx, "evaluator unavailable, using fallback score",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return fallback()
	}

	score := verdict.QualityScore
	out := Result{
		QualityScore: score,
		Passed:       score >= PassThreshold,
		Issues:       verdict.Issues,
		Suggestions:  verdict.Suggestions,
		Reasoning:    verdict.Reasoning,
	}
	g.metrics.ObserveEvaluation(out.Passed, score, time.Since(start))
	return out
}

func (g *Gate) ask(ctx context.Context, query string, result *execution.AggregatedResult) (*responder.Verdict, error) {
	if g.evaluator == nil {
		return nil, responder.ErrNotConfigured
	}
	if result == nil {
		return nil, errNothingToScore
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	verdict, err := g.evaluator.Evaluate(ctx, responder.EvaluationRequest{
		Query:      query,
		Response:   result.Response,
		Agent:      result.Agent(),
		Sources:    result.Sources,
		Confidence: result.Confidence,
	})
	if err != nil {
		return nil, err
	}
	if verdict == nil || math.IsNaN(verdict.QualityScore) || verdict.QualityScore < 0 || verdict.QualityScore > 1 {
		return nil, errInvalidVerdict
	}
	return verdict, nil
}

func fallback() Result {
	return Result{
		QualityScore: FallbackScore,
		Passed:       FallbackScore >= PassThreshold,
		Issues:       []string{},
		Suggestions:  []string{},
		Reasoning:    FallbackReasoning,
		Fallback:     true,
	}
}
