package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Queries   *prometheus.CounterVec
	Decisions *prometheus.CounterVec
	Saves     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Queries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lucy_queries_total",
			Help: "Orchestrated queries by outcome (answered, refine, failed, cancelled)",
		}, []string{"outcome"}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lucy_routing_decisions_total",
			Help: "Routing decisions by primary domain and strategy",
		}, []string{"primary", "strategy"}),
		Saves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lucy_interaction_saves_total",
			Help: "Interaction records by persistence result (durable, pending, failed)",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncQuery(outcome string) {
	if m == nil {
		return
	}
	m.Queries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDecision(primary, strategy string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(primary, strategy).Inc()
}

func (m *Metrics) IncSave(result string) {
	if m == nil {
		return
	}
	m.Saves.WithLabelValues(result).Inc()
}
