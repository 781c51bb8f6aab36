package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks gate outcomes.
type Metrics struct {
	Evaluations   *prometheus.CounterVec
	QualityScores prometheus.Histogram
	Latency       prometheus.Histogram
	Fallbacks     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lucy_evaluations_total",
			Help: "Evaluations by outcome (passed, refine)",
		}, []string{"outcome"}),
		QualityScores: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lucy_evaluation_quality_score",
			Help:    "Distribution of evaluator quality scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		Latency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lucy_evaluation_duration_seconds",
			Help:    "Time spent waiting for the evaluator",
			Buckets: prometheus.DefBuckets,
		}),
		Fallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "lucy_evaluation_fallbacks_total",
			Help: "Evaluations that used the fallback score",
		}),
	}
}

func (m *Metrics) ObserveEvaluation(passed bool, score float64, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "refine"
	if passed {
		outcome = "passed"
	}
	m.Evaluations.WithLabelValues(outcome).Inc()
	m.QualityScores.Observe(score)
	m.Latency.Observe(d.Seconds())
}

func (m *Metrics) IncFallback() {
	if m == nil {
		return
	}
	m.Fallbacks.Inc()
}
