package responder

import (
	"context"

	"lucy/internal/domains"
)

// Source is an opaque citation record returned by a responder.
type Source map[string]any

// Result is one responder's answer. It is not modified after Query returns.
type Result struct {
	Domain     domains.Domain
	Response   string
	Confidence float64
	Sources    []Source
	Reasoning  string
	Metadata   map[string]string
}

// EvaluationRequest is what the evaluator scores.
type EvaluationRequest struct {
	Query      string   `json:"query"`
	Response   string   `json:"response"`
	Agent      string   `json:"agent"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
}

// Verdict is the evaluator's answer.
type Verdict struct {
	QualityScore float64  `json:"quality_score"`
	Passed       bool     `json:"passed"`
	Issues       []string `json:"issues"`
	Suggestions  []string `json:"suggestions"`
	Reasoning    string   `json:"reasoning"`
}

// Responder answers queries for one domain.
type Responder interface {
	Domain() domains.Domain
	Query(ctx context.Context, query string, qctx map[string]any) (*Result, error)
	Health(ctx context.Context) error
}

// Evaluator scores a candidate answer.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (*Verdict, error)
	Health(ctx context.Context) error
}

// queryRequest and queryResponse are the responder wire format.
type queryRequest struct {
	Query   string         `json:"query"`
	Context map[string]any `json:"context"`
}

type queryResponse struct {
	Response   *string           `json:"response"`
	Confidence *float64          `json:"confidence"`
	Sources    []Source          `json:"sources"`
	Reasoning  string            `json:"reasoning"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
