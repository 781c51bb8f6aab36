package routing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"lucy/internal/domains"
)

// PatternRule routes a query matching Expr to several domains at once.
type PatternRule struct {
	Expr     string
	Domains  []domains.Domain
	Strategy Strategy
}

// KeywordRule votes for Domains when Keyword is a substring of the query.
type KeywordRule struct {
	Keyword string
	Domains []domains.Domain
}

type compiledPattern struct {
	rule PatternRule
	re   *regexp.Regexp
}

// Table is the immutable routing table. Rule order is significant: the first
// matching pattern wins and keyword ties resolve in declaration order.
type Table struct {
	patterns []compiledPattern
	keywords []KeywordRule
}

// NewTable compiles and validates the rules. Keywords are lower-cased since
// matching runs against the lower-cased query.
func NewTable(patterns []PatternRule, keywords []KeywordRule) (*Table, error) {
	t := &Table{}
	var errs []error
	for _, p := range patterns {
		re, err := regexp.Compile(p.Expr)
		if err != nil {
			errs = append(errs, fmt.Errorf("pattern %q: %w", p.Expr, err))
			continue
		}
		if len(p.Domains) < 2 {
			errs = append(errs, fmt.Errorf("pattern %q: needs at least two domains", p.Expr))
		}
		if p.Strategy != StrategySequential && p.Strategy != StrategyParallel {
			errs = append(errs, fmt.Errorf("pattern %q: strategy must be sequential or parallel", p.Expr))
		}
		errs = append(errs, checkDomains(p.Expr, p.Domains)...)
		rule := p
		rule.Domains = append([]domains.Domain(nil), p.Domains...)
		t.patterns = append(t.patterns, compiledPattern{rule: rule, re: re})
	}
	for _, k := range keywords {
		kw := strings.ToLower(strings.TrimSpace(k.Keyword))
		if kw == "" {
			errs = append(errs, errors.New("empty keyword"))
			continue
		}
		if len(k.Domains) == 0 {
			errs = append(errs, fmt.Errorf("keyword %q: no domains", kw))
		}
		errs = append(errs, checkDomains(kw, k.Domains)...)
		t.keywords = append(t.keywords, KeywordRule{
			Keyword: kw,
			Domains: append([]domains.Domain(nil), k.Domains...),
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid routing table: %w", err)
	}
	return t, nil
}

func checkDomains(rule string, ds []domains.Domain) []error {
	var errs []error
	for _, d := range ds {
		if !d.IsRoutable() {
			errs = append(errs, fmt.Errorf("rule %q: domain %q is not routable", rule, d))
		}
	}
	return errs
}

// DefaultPatterns are the production multi-domain patterns.
func DefaultPatterns() []PatternRule {
	return []PatternRule{
		{
			Expr:     `.*email.*about.*(?:qdrant|supabase|database).*`,
			Domains:  []domains.Domain{domains.Communications, domains.Data},
			Strategy: StrategySequential,
		},
		{
			Expr:     `.*project.*(?:email|message).*`,
			Domains:  []domains.Domain{domains.Projects, domains.Communications},
			Strategy: StrategyParallel,
		},
		{
			Expr:     `.*docs.*for.*project.*`,
			Domains:  []domains.Domain{domains.Knowledge, domains.Projects},
			Strategy: StrategySequential,
		},
	}
}

// DefaultKeywords is the production keyword table.
func DefaultKeywords() []KeywordRule {
	rules := []struct {
		domain   domains.Domain
		keywords []string
	}{
		{domains.Communications, []string{"email", "message", "beeper", "contact"}},
		{domains.Projects, []string{"project", "linear", "github", "task", "issue"}},
		{domains.Knowledge, []string{"docs", "documentation", "how to", "api", "tutorial"}},
		{domains.Content, []string{"workflow", "n8n", "automation"}},
		{domains.Data, []string{"database", "qdrant", "supabase", "query", "postgres"}},
		{domains.Dev, []string{"docker", "vscode", "development", "build"}},
		{domains.Business, []string{"invoice", "client", "business", "finance"}},
		{domains.Personal, []string{"remind", "schedule", "personal"}},
	}
	var out []KeywordRule
	for _, r := range rules {
		for _, kw := range r.keywords {
			out = append(out, KeywordRule{Keyword: kw, Domains: []domains.Domain{r.domain}})
		}
	}
	return out
}

// DefaultTable builds the production table.
func DefaultTable() (*Table, error) {
	return NewTable(DefaultPatterns(), DefaultKeywords())
}
