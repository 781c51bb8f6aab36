package responder

import (
	"context"
	"errors"
	"fmt"

	"lucy/internal/domains"
)

// ErrResponderUnavailable is returned when no targeted responder produced a
// result.
var ErrResponderUnavailable = errors.New("responder unavailable")

// ErrNotConfigured is returned for a domain without a registered responder.
var ErrNotConfigured = errors.New("responder not configured")

// Category normalizes why a responder call failed.
type Category string

const (
	CategoryTimeout       Category = "timeout"
	CategoryCanceled      Category = "canceled"
	CategoryUnavailable   Category = "unavailable"
	CategoryBadResponse   Category = "bad_response"
	CategoryNotConfigured Category = "not_configured"
	CategoryCircuitOpen   Category = "circuit_open"
	CategoryInternal      Category = "internal"
)

// Error is a categorized responder failure.
type Error struct {
	Category   Category
	Domain     domains.Domain
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("responder %s [%s]: %s: %v", e.Domain, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("responder %s [%s]: %s", e.Domain, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func NewError(category Category, domain domains.Domain, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Domain:     domain,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == CategoryTimeout || category == CategoryUnavailable,
	}
}

// Classify turns any error from a call into an *Error. Context errors are
// categorized as timeout or cancellation.
func Classify(domain domains.Domain, err error) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(CategoryTimeout, domain, "call timed out", err)
	case errors.Is(err, context.Canceled):
		return NewError(CategoryCanceled, domain, "call canceled", err)
	case errors.Is(err, ErrNotConfigured):
		return NewError(CategoryNotConfigured, domain, "no responder registered", err)
	default:
		return NewError(CategoryInternal, domain, "call failed", err)
	}
}

func IsRetryable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// CategoryOf returns the category of err, or CategoryInternal.
func CategoryOf(err error) Category {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return CategoryInternal
}
