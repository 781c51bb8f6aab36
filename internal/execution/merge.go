package execution

import (
	"strings"
	"time"

	"lucy/internal/domains"
	"lucy/internal/responder"
	"lucy/internal/routing"
)

const fragmentSeparator = "\n\n"

// merge folds outcomes, already in merge order, into one result. A single
// contributor's text is returned verbatim; several contributors are each
// introduced by a domain header.
func merge(strategy routing.Strategy, outcomes []outcome) (*AggregatedResult, error) {
	agg := &AggregatedResult{
		Strategy:  strategy,
		Errors:    make(map[domains.Domain]error),
		Latencies: make(map[domains.Domain]time.Duration, len(outcomes)),
	}

	var ok []*responder.Result
	for _, o := range outcomes {
		agg.Latencies[o.domain] = o.latency
		if o.err != nil {
			agg.Errors[o.domain] = o.err
			continue
		}
		ok = append(ok, o.result)
	}
	if len(ok) == 0 {
		return nil, &UnavailableError{Strategy: strategy, Errors: agg.Errors}
	}

	var (
		texts []string
		total float64
	)
	for _, r := range ok {
		agg.Domains = append(agg.Domains, r.Domain)
		agg.Sources = append(agg.Sources, r.Sources...)
		total += r.Confidence
		if len(ok) == 1 {
			texts = append(texts, r.Response)
			continue
		}
		texts = append(texts, "**"+r.Domain.Header()+":**\n"+r.Response)
	}
	agg.Response = strings.Join(texts, fragmentSeparator)
	agg.Confidence = total / float64(len(ok))
	return agg, nil
}
