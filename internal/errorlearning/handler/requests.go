package handler

import (
	"strings"

	"lucy/internal/errorlearning/models"
	dErrors "lucy/pkg/domain-errors"
)

const maxFieldLength = 16 << 10

// RecordErrorRequest is the body of POST /errors.
type RecordErrorRequest struct {
	ErrorType    string         `json:"error_type"`
	WhatHappened string         `json:"what_happened"`
	WhyHappened  string         `json:"why_happened"`
	HowToFix     string         `json:"how_to_fix"`
	HowToPrevent string         `json:"how_to_prevent"`
	Context      map[string]any `json:"context"`
	Severity     string         `json:"severity"`

	parsedSeverity models.Severity
}

func (r *RecordErrorRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	for _, f := range []string{r.ErrorType, r.WhatHappened, r.WhyHappened, r.HowToFix, r.HowToPrevent} {
		if len(f) > maxFieldLength {
			return dErrors.New(dErrors.CodeValidation, "field exceeds maximum length")
		}
	}
	r.ErrorType = strings.TrimSpace(r.ErrorType)
	r.WhatHappened = strings.TrimSpace(r.WhatHappened)
	if r.ErrorType == "" {
		return dErrors.New(dErrors.CodeValidation, "error_type is required")
	}
	if r.WhatHappened == "" {
		return dErrors.New(dErrors.CodeValidation, "what_happened is required")
	}
	sev, err := models.ParseSeverity(r.Severity)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "severity must be one of low, medium, high, critical")
	}
	r.parsedSeverity = sev
	return nil
}

func (r *RecordErrorRequest) toDomain() models.RecordRequest {
	return models.RecordRequest{
		ErrorType:    r.ErrorType,
		WhatHappened: r.WhatHappened,
		WhyHappened:  r.WhyHappened,
		HowToFix:     r.HowToFix,
		HowToPrevent: r.HowToPrevent,
		Context:      r.Context,
		Severity:     r.parsedSeverity,
	}
}

// CheckActionRequest is the body of POST /errors/check.
type CheckActionRequest struct {
	ActionType    string         `json:"action_type"`
	ActionContext map[string]any `json:"action_context"`
}

func (r *CheckActionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.ActionType) == "" && len(r.ActionContext) == 0 {
		return dErrors.New(dErrors.CodeValidation, "action_type or action_context is required")
	}
	return nil
}
