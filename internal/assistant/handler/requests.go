package handler

import (
	"strings"

	dErrors "lucy/pkg/domain-errors"
)

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query   string         `json:"query"`
	Context map[string]any `json:"context"`
}

func (r *QueryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return dErrors.New(dErrors.CodeValidation, "query is required")
	}
	if r.Context == nil {
		r.Context = map[string]any{}
	}
	return nil
}
