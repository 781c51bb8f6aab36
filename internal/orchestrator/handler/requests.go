package handler

import (
	"strings"

	dErrors "lucy/pkg/domain-errors"
)

const maxQueryLength = 8 << 10

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query    string         `json:"query"`
	UserID   string         `json:"user_id"`
	Context  map[string]any `json:"context"`
	Language string         `json:"language"`
}

func (r *QueryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return dErrors.New(dErrors.CodeValidation, "query is required")
	}
	if len(r.Query) > maxQueryLength {
		return dErrors.New(dErrors.CodeValidation, "query is too long")
	}
	if r.Context == nil {
		r.Context = map[string]any{}
	}
	if r.Language != "" {
		if _, set := r.Context["language"]; !set {
			r.Context["language"] = r.Language
		}
	}
	return nil
}

// BriefingRequest is the optional body of POST /briefing.
type BriefingRequest struct {
	UserID string `json:"user_id"`
}

func (r *BriefingRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.UserID = strings.TrimSpace(r.UserID)
	return nil
}
