package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks memory writes and their durability.
type Metrics struct {
	Writes              *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec
	ReplayBacklog       prometheus.GaugeFunc
}

// New registers the memory metrics. backlog reports pending durable writes
// and may be nil.
func New(reg prometheus.Registerer, backlog func() int) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		Writes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lucy_memory_writes_total",
			Help: "Memory writes by operation and category",
		}, []string{"op", "category"}),
		PersistenceFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lucy_memory_persistence_failures_total",
			Help: "Durable memory writes that failed and were queued for replay",
		}, []string{"op"}),
	}
	if backlog != nil {
		m.ReplayBacklog = f.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "lucy_memory_replay_backlog",
			Help: "Durable memory writes waiting to be replayed",
		}, func() float64 { return float64(backlog()) })
	}
	return m
}

func (m *Metrics) IncWrite(op, category string) {
	if m == nil {
		return
	}
	m.Writes.WithLabelValues(op, category).Inc()
}

func (m *Metrics) IncPersistenceFailure(op string) {
	if m == nil {
		return
	}
	m.PersistenceFailures.WithLabelValues(op).Inc()
}
