package handler

import (
	"lucy/internal/domains"
	"lucy/internal/execution"
	"lucy/internal/orchestrator"
	"lucy/internal/responder"
	"lucy/internal/routing"
)

type routingResponse struct {
	Primary    domains.Domain   `json:"primary"`
	Secondary  []domains.Domain `json:"secondary"`
	Strategy   routing.Strategy `json:"strategy"`
	Confidence float64          `json:"confidence"`
	Reasoning  string           `json:"reasoning"`
	Ambiguous  bool             `json:"ambiguous"`
}

type queryResponse struct {
	Response        string                    `json:"response"`
	Agent           string                    `json:"agent"`
	Domains         []domains.Domain          `json:"domains"`
	Strategy        routing.Strategy          `json:"strategy"`
	Confidence      float64                   `json:"confidence"`
	Sources         []responder.Source        `json:"sources"`
	QualityScore    float64                   `json:"quality_score"`
	Evaluated       bool                      `json:"evaluated"`
	NeedsRefinement bool                      `json:"needs_refinement"`
	Suggestions     []string                  `json:"suggestions"`
	Issues          []string                  `json:"issues"`
	Routing         routingResponse           `json:"routing"`
	Errors          map[domains.Domain]string `json:"errors,omitempty"`
}

func toQueryResponse(r *orchestrator.QueryResponse) queryResponse {
	secondary := r.Routing.Secondary
	if secondary == nil {
		secondary = []domains.Domain{}
	}
	return queryResponse{
		Response:        r.Response,
		Agent:           r.Agent,
		Domains:         r.Domains,
		Strategy:        r.Strategy,
		Confidence:      r.Confidence,
		Sources:         r.Sources,
		QualityScore:    r.QualityScore,
		Evaluated:       r.Evaluated,
		NeedsRefinement: r.NeedsRefinement,
		Suggestions:     nonNil(r.Suggestions),
		Issues:          nonNil(r.Issues),
		Routing: routingResponse{
			Primary:    r.Routing.Primary,
			Secondary:  secondary,
			Strategy:   r.Routing.Strategy,
			Confidence: r.Routing.Confidence,
			Reasoning:  r.Routing.Reasoning,
			Ambiguous:  r.Routing.Ambiguous,
		},
		Errors: r.Errors,
	}
}

type briefingResponse struct {
	Response   string             `json:"response"`
	Agent      string             `json:"agent"`
	Confidence float64            `json:"confidence"`
	Sources    []responder.Source `json:"sources"`
}

func toBriefingResponse(r *execution.AggregatedResult) briefingResponse {
	sources := r.Sources
	if sources == nil {
		sources = []responder.Source{}
	}
	return briefingResponse{
		Response:   r.Response,
		Agent:      r.Agent(),
		Confidence: r.Confidence,
		Sources:    sources,
	}
}

// queryErrorResponse extends the standard error envelope with the query.
type queryErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Query            string `json:"query"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
