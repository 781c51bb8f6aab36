package orchestrator

import (
	"context"

	"lucy/internal/domains"
	elmodels "lucy/internal/errorlearning/models"
	"lucy/internal/evaluation"
	"lucy/internal/execution"
	memmodels "lucy/internal/memory/models"
	"lucy/internal/responder"
	"lucy/internal/routing"
)

// Router picks the responders for a query.
type Router interface {
	Decide(query string, qctx map[string]any) routing.Decision
}

// Executor runs a routing decision.
type Executor interface {
	Execute(ctx context.Context, decision routing.Decision, query string, qctx map[string]any) (*execution.AggregatedResult, error)
}

// Gate scores merged output. It never fails.
type Gate interface {
	Evaluate(ctx context.Context, query string, result *execution.AggregatedResult) evaluation.Result
}

// Memory records interactions and reports namespace stats.
type Memory interface {
	Add(ctx context.Context, namespace, content, category string, metadata map[string]any) (*memmodels.Record, error)
	AllStats(ctx context.Context) (map[string]memmodels.Stats, error)
}

// ErrorStats reports error-learning totals.
type ErrorStats interface {
	Stats(ctx context.Context) (*elmodels.Stats, error)
}

// Responders resolves the configured responder of a domain.
type Responders interface {
	Get(d domains.Domain) (responder.Responder, bool)
}
