package routing

import (
	"fmt"
	"strings"

	"lucy/internal/domains"
)

// Router maps a free-text query to a Decision. It holds no mutable state and
// is safe for concurrent use.
type Router struct {
	table         *Table
	defaultDomain domains.Domain
}

// New builds a router over table. defaultDomain receives queries that match
// nothing.
func New(table *Table, defaultDomain domains.Domain) (*Router, error) {
	if table == nil {
		return nil, fmt.Errorf("routing table is required")
	}
	if !defaultDomain.IsRoutable() {
		return nil, fmt.Errorf("default domain %q is not routable", defaultDomain)
	}
	return &Router{table: table, defaultDomain: defaultDomain}, nil
}

// Decide never fails. The context argument is accepted for callers that route
// with request metadata; the current rules only look at the query.
func (r *Router) Decide(query string, _ map[string]any) Decision {
	q := strings.ToLower(query)

	for _, p := range r.table.patterns {
		if p.re.MatchString(q) {
			return Decision{
				Primary:    p.rule.Domains[0],
				Secondary:  append([]domains.Domain(nil), p.rule.Domains[1:]...),
				Strategy:   p.rule.Strategy,
				Confidence: PatternConfidence,
				Reasoning:  "matched multi-domain pattern: " + p.rule.Expr,
			}
		}
	}

	if winner, matched, ok := r.vote(q); ok {
		return Decision{
			Primary:    winner,
			Strategy:   StrategySingle,
			Confidence: KeywordConfidence,
			Reasoning:  fmt.Sprintf("matched keywords: %s", strings.Join(matched, ", ")),
		}
	}

	return Decision{
		Primary:    r.defaultDomain,
		Strategy:   StrategySingle,
		Confidence: DefaultConfidence,
		Reasoning:  DefaultReasoning,
		Ambiguous:  true,
	}
}

// vote tallies keyword hits. On equal counts the domain that received its
// first vote earliest in table order wins.
func (r *Router) vote(q string) (domains.Domain, []string, bool) {
	counts := make(map[domains.Domain]int)
	var order []domains.Domain
	var matched []string
	for _, k := range r.table.keywords {
		if !strings.Contains(q, k.Keyword) {
			continue
		}
		matched = append(matched, k.Keyword)
		for _, d := range k.Domains {
			if counts[d] == 0 {
				order = append(order, d)
			}
			counts[d]++
		}
	}
	if len(order) == 0 {
		return "", nil, false
	}
	winner := order[0]
	for _, d := range order[1:] {
		if counts[d] > counts[winner] {
			winner = d
		}
	}
	return winner, matched, true
}
