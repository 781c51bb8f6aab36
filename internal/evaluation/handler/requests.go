package handler

import (
	"math"
	"strings"

	"lucy/internal/responder"
	dErrors "lucy/pkg/domain-errors"
)

// EvaluateRequest is the body of POST /evaluate.
type EvaluateRequest struct {
	Query      string             `json:"query"`
	Response   string             `json:"response"`
	Agent      string             `json:"agent"`
	Sources    []responder.Source `json:"sources"`
	Confidence *float64           `json:"confidence"`
}

func (r *EvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return dErrors.New(dErrors.CodeValidation, "query is required")
	}
	if r.Confidence == nil {
		c := 0.5
		r.Confidence = &c
	}
	if c := *r.Confidence; math.IsNaN(c) || c < 0 || c > 1 {
		return dErrors.New(dErrors.CodeValidation, "confidence must be between 0 and 1")
	}
	return nil
}

func (r *EvaluateRequest) toDomain() responder.EvaluationRequest {
	return responder.EvaluationRequest{
		Query:      r.Query,
		Response:   r.Response,
		Agent:      r.Agent,
		Sources:    r.Sources,
		Confidence: *r.Confidence,
	}
}
