// Package evaluation scores candidate answers and gates them before they
// reach a caller.
package evaluation

import (
	"fmt"
	"strings"

	"lucy/internal/responder"
)

// PassThreshold is the minimum quality score a result needs to pass.
const PassThreshold = 0.8

const (
	NoSourcesPenalty = 0.1
	LengthPenalty    = 0.05
	MinWords         = 10
	MaxWords         = 500
)

// Scorer is the heuristic used by the evaluator role. The zero value is
// ready to use.
type Scorer struct{}

// Score rates req. Only missing sources and an out-of-band length cost
// points; relevance and recency are reported as issues.
func (Scorer) Score(req responder.EvaluationRequest) responder.Verdict {
	var issues, suggestions []string
	score := req.Confidence

	if !relevant(req.Query, req.Response) {
		issues = append(issues, "Response may not be relevant to query")
		suggestions = append(suggestions, "Ensure response directly addresses the query")
	}

	if len(req.Sources) == 0 {
		issues = append(issues, "No sources provided")
		suggestions = append(suggestions, "Include sources to support claims")
		score -= NoSourcesPenalty
	} else if undated(req.Sources) {
		issues = append(issues, "Source recency could not be verified")
	}

	words := len(strings.Fields(req.Response))
	switch {
	case words < MinWords:
		issues = append(issues, "Response too brief")
		suggestions = append(suggestions, "Provide more detail")
		score -= LengthPenalty
	case words > MaxWords:
		issues = append(issues, "Response too verbose")
		suggestions = append(suggestions, "Be more concise")
		score -= LengthPenalty
	}

	score = clamp(score)
	return responder.Verdict{
		QualityScore: score,
		Passed:       score >= PassThreshold,
		Issues:       issues,
		Suggestions:  suggestions,
		Reasoning:    fmt.Sprintf("Evaluated based on relevance, completeness, clarity. Score: %.2f", score),
	}
}

// relevant reports whether any query word occurs in the response.
func relevant(query, response string) bool {
	response = strings.ToLower(response)
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if strings.Contains(response, w) {
			return true
		}
	}
	return false
}

func undated(sources []responder.Source) bool {
	for _, s := range sources {
		if _, ok := s["date"]; !ok {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
