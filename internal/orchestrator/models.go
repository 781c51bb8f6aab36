package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"lucy/internal/domains"
	elmodels "lucy/internal/errorlearning/models"
	memmodels "lucy/internal/memory/models"
	"lucy/internal/responder"
	"lucy/internal/routing"
)

const (
	InteractionNamespace = "lucy_orchestrator"
	BriefingQuery        = "Generate morning briefing"
	DefaultUserID        = "default"
)

// Health states reported per responder.
const (
	StatusHealthy       = "healthy"
	StatusDegraded      = "degraded"
	StatusUnhealthy     = "unhealthy"
	StatusUnreachable   = "unreachable"
	StatusNotConfigured = "not_configured"
)

type QueryRequest struct {
	Query   string
	UserID  string
	Context map[string]any
}

// QueryResponse is the gated answer returned to callers.
type QueryResponse struct {
	Response        string
	Agent           string
	Domains         []domains.Domain
	Strategy        routing.Strategy
	Confidence      float64
	Sources         []responder.Source
	QualityScore    float64
	Evaluated       bool
	NeedsRefinement bool
	Suggestions     []string
	Issues          []string
	Routing         routing.Decision
	// Errors carries the failures of responders that did not contribute.
	Errors map[domains.Domain]string
}

// QueryError is returned when no responder produced an answer. It echoes the
// query so the caller can retry or rephrase.
type QueryError struct {
	Query   string
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q: %s: %v", e.Query, e.Message, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// AsQueryError extracts a *QueryError from err.
func AsQueryError(err error) (*QueryError, bool) {
	var qe *QueryError
	ok := errors.As(err, &qe)
	return qe, ok
}

type HealthReport struct {
	Status       string            `json:"status"`
	Orchestrator string            `json:"orchestrator"`
	Assistants   map[string]string `json:"assistants"`
	Timestamp    time.Time         `json:"timestamp"`
}

type Stats struct {
	Memory           map[string]memmodels.Stats `json:"memory"`
	Errors           *elmodels.Stats            `json:"errors"`
	ActiveAssistants []domains.Domain           `json:"active_assistants"`
	QueriesServed    int64                      `json:"queries_served"`
	QueriesFailed    int64                      `json:"queries_failed"`
	UptimeSeconds    float64                    `json:"uptime_seconds"`
}
