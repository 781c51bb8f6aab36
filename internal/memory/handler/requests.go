package handler

import (
	"strings"

	"lucy/internal/memory"
	"lucy/internal/memory/models"
	dErrors "lucy/pkg/domain-errors"
)

const (
	maxContentLength = 64 << 10
	maxMetadataKeys  = 64
)

// AddMemoryRequest is the body of POST /memory/{namespace}.
type AddMemoryRequest struct {
	Content  string         `json:"content"`
	Category string         `json:"category"`
	Metadata map[string]any `json:"metadata"`
}

func (r *AddMemoryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Content) > maxContentLength {
		return dErrors.New(dErrors.CodeValidation, "content is too long")
	}
	if len(r.Metadata) > maxMetadataKeys {
		return dErrors.New(dErrors.CodeValidation, "too many metadata keys")
	}
	r.Category = strings.TrimSpace(r.Category)
	if strings.TrimSpace(r.Content) == "" {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	if r.Category == "" {
		return dErrors.New(dErrors.CodeValidation, "category is required")
	}
	return nil
}

// UpdateMemoryRequest is the body of PATCH /memory/{namespace}/{id}.
type UpdateMemoryRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

func (r *UpdateMemoryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Content) > maxContentLength {
		return dErrors.New(dErrors.CodeValidation, "content is too long")
	}
	if strings.TrimSpace(r.Content) == "" && len(r.Metadata) == 0 {
		return dErrors.New(dErrors.CodeValidation, "content or metadata is required")
	}
	return nil
}

// SearchAcrossRequest is the body of POST /memory/search.
type SearchAcrossRequest struct {
	Query             string   `json:"query"`
	Namespaces        []string `json:"namespaces"`
	LimitPerNamespace int      `json:"limit_per_namespace"`
}

func (r *SearchAcrossRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.LimitPerNamespace < 0 || r.LimitPerNamespace > 100 {
		return dErrors.New(dErrors.CodeValidation, "limit_per_namespace must be between 0 and 100")
	}
	return nil
}

// ImportRequest is the body of PUT /memory/{namespace}/import. It accepts
// the document produced by export.
type ImportRequest struct {
	models.Snapshot
}

func (r *ImportRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	for _, rec := range r.Memories {
		if strings.TrimSpace(rec.Category) == "" {
			return dErrors.New(dErrors.CodeValidation, "every memory needs a category")
		}
	}
	return nil
}

// CorrectionRequest is the body of POST /learning/{namespace}/corrections.
type CorrectionRequest struct {
	Query     string         `json:"original_query"`
	Incorrect string         `json:"incorrect_response"`
	Correct   string         `json:"correct_response"`
	Context   map[string]any `json:"context"`
}

func (r *CorrectionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Query) == "" || strings.TrimSpace(r.Correct) == "" {
		return dErrors.New(dErrors.CodeValidation, "original_query and correct_response are required")
	}
	return nil
}

func (r *CorrectionRequest) toDomain() memory.Correction {
	return memory.Correction{Query: r.Query, Incorrect: r.Incorrect, Correct: r.Correct, Context: r.Context}
}

// PatternRequest is the body of POST /learning/{namespace}/patterns.
type PatternRequest struct {
	QueryType string         `json:"query_type"`
	Approach  string         `json:"successful_approach"`
	Outcome   string         `json:"outcome"`
	Metadata  map[string]any `json:"metadata"`
}

func (r *PatternRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.QueryType) == "" || strings.TrimSpace(r.Approach) == "" {
		return dErrors.New(dErrors.CodeValidation, "query_type and successful_approach are required")
	}
	return nil
}

func (r *PatternRequest) toDomain() memory.Pattern {
	return memory.Pattern{QueryType: r.QueryType, Approach: r.Approach, Outcome: r.Outcome, Metadata: r.Metadata}
}

// PreferenceRequest is the body of POST /learning/{namespace}/preferences.
type PreferenceRequest struct {
	Type    string `json:"preference_type"`
	Value   string `json:"preference_value"`
	Context string `json:"context"`
}

func (r *PreferenceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Type) == "" {
		return dErrors.New(dErrors.CodeValidation, "preference_type is required")
	}
	return nil
}

func (r *PreferenceRequest) toDomain() memory.Preference {
	return memory.Preference{Type: r.Type, Value: r.Value, Context: r.Context}
}
