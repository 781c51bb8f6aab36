package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks responder calls and execution outcomes.
type Metrics struct {
	ResponderLatency  *prometheus.HistogramVec
	ResponderFailures *prometheus.CounterVec
	Executions        *prometheus.CounterVec
}

// New registers the execution metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ResponderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lucy_responder_call_duration_seconds",
			Help:    "Duration of responder invocations by domain and outcome",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"domain", "outcome"}),
		ResponderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lucy_responder_failures_total",
			Help: "Failed responder invocations by domain and failure category",
		}, []string{"domain", "category"}),
		Executions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lucy_executions_total",
			Help: "Executions by strategy and result (complete, partial, failed)",
		}, []string{"strategy", "result"}),
	}
}

func (m *Metrics) ObserveCall(domain, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ResponderLatency.WithLabelValues(domain, outcome).Observe(d.Seconds())
}

func (m *Metrics) IncFailure(domain, category string) {
	if m == nil {
		return
	}
	m.ResponderFailures.WithLabelValues(domain, category).Inc()
}

func (m *Metrics) IncExecution(strategy, result string) {
	if m == nil {
		return
	}
	m.Executions.WithLabelValues(strategy, result).Inc()
}
