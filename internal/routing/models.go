package routing

import (
	"fmt"

	"lucy/internal/domains"
)

// Strategy is the concurrency pattern used to execute a decision.
type Strategy string

const (
	StrategySingle     Strategy = "single"
	StrategySequential Strategy = "sequential"
	StrategyParallel   Strategy = "parallel"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategySingle, StrategySequential, StrategyParallel:
		return st, nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

const (
	PatternConfidence = 0.9
	KeywordConfidence = 0.8
	DefaultConfidence = 0.5
)

// DefaultReasoning marks a decision that matched nothing.
const DefaultReasoning = "no match — default routing"

// Decision is the routing outcome for one query. It is never mutated after
// Decide returns it.
type Decision struct {
	Primary    domains.Domain
	Secondary  []domains.Domain
	Strategy   Strategy
	Confidence float64
	Reasoning  string
	// Ambiguous is set when no pattern or keyword matched.
	Ambiguous bool
}

// Targets lists the primary followed by the secondaries.
func (d Decision) Targets() []domains.Domain {
	out := make([]domains.Domain, 0, 1+len(d.Secondary))
	out = append(out, d.Primary)
	return append(out, d.Secondary...)
}
