package execution

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"lucy/internal/domains"
	"lucy/internal/responder"
	"lucy/internal/routing"
)

// AggregatedResult is the merged output of one execution.
type AggregatedResult struct {
	Response   string
	Domains    []domains.Domain
	Confidence float64
	Sources    []responder.Source
	Strategy   routing.Strategy
	// Errors holds per-responder failures that were excluded from the merge.
	Errors    map[domains.Domain]error
	Latencies map[domains.Domain]time.Duration
}

// Partial reports whether some targeted responder failed.
func (r *AggregatedResult) Partial() bool {
	return len(r.Errors) > 0
}

// Agent names the contributor the way callers display it.
func (r *AggregatedResult) Agent() string {
	if len(r.Domains) == 1 {
		return string(r.Domains[0])
	}
	return "multi-agent"
}

// UnavailableError is returned when every targeted responder failed. It
// matches responder.ErrResponderUnavailable with errors.Is.
type UnavailableError struct {
	Strategy routing.Strategy
	Errors   map[domains.Domain]error
}

func (e *UnavailableError) Error() string {
	names := make([]string, 0, len(e.Errors))
	for d := range e.Errors {
		names = append(names, string(d))
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s execution failed for %s", responder.ErrResponderUnavailable, e.Strategy, strings.Join(names, ", "))
}

func (e *UnavailableError) Is(target error) bool {
	return target == responder.ErrResponderUnavailable
}

// Unwrap exposes the per-responder causes.
func (e *UnavailableError) Unwrap() error {
	errs := make([]error, 0, len(e.Errors))
	for _, err := range e.Errors {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// outcome is the result of a single invocation, success or failure.
type outcome struct {
	domain  domains.Domain
	result  *responder.Result
	err     error
	latency time.Duration
}
