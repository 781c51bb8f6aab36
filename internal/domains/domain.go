// Package domains defines the responder domains and their per-domain
// configuration records. The registry is built once at startup, validated,
// and shared read-only afterwards.
package domains

import (
	"fmt"
	"strings"
)

// Domain names one specialist responder.
type Domain string

const (
	Communications Domain = "communications"
	Knowledge      Domain = "knowledge"
	Projects       Domain = "projects"
	Content        Domain = "content"
	Data           Domain = "data"
	Dev            Domain = "dev"
	Business       Domain = "business"
	Personal       Domain = "personal"
	Evaluator      Domain = "evaluator"
	Orchestrator   Domain = "orchestrator"
)

// Routable lists the domains a query can be sent to, in declaration order.
var Routable = []Domain{
	Communications, Knowledge, Projects, Content, Data, Dev, Business, Personal,
}

func (d Domain) String() string {
	return string(d)
}

// Header is the label used when merged output carries several domains.
func (d Domain) Header() string {
	return strings.ToUpper(string(d))
}

// IsRoutable reports whether d can be the target of a routing decision.
func (d Domain) IsRoutable() bool {
	for _, r := range Routable {
		if r == d {
			return true
		}
	}
	return false
}

// Parse accepts a case-insensitive domain name.
func Parse(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Communications, Knowledge, Projects, Content, Data, Dev, Business, Personal, Evaluator, Orchestrator:
		return d, nil
	}
	return "", fmt.Errorf("unknown domain %q", s)
}
