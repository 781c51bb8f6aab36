package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Recorded      *prometheus.CounterVec
	Repeated      *prometheus.CounterVec
	Warnings      prometheus.Counter
	AlertFailures prometheus.Counter
	Deferred      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Recorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lucy_errors_recorded_total",
			Help: "Error observations recorded, by severity",
		}, []string{"severity"}),
		Repeated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lucy_errors_repeated_total",
			Help: "Observations of an already known error fingerprint, by error type",
		}, []string{"error_type"}),
		Warnings: f.NewCounter(prometheus.CounterOpts{
			Name: "lucy_error_check_warnings_total",
			Help: "Pre-action checks that matched earlier errors",
		}),
		AlertFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "lucy_error_alert_failures_total",
			Help: "Repeated-error alerts that could not be published",
		}),
		Deferred: f.NewCounter(prometheus.CounterOpts{
			Name: "lucy_errors_deferred_total",
			Help: "Observations queued for replay because the store was unavailable",
		}),
	}
}

func (m *Metrics) IncRecorded(severity string) {
	if m == nil {
		return
	}
	m.Recorded.WithLabelValues(severity).Inc()
}

func (m *Metrics) IncRepeated(errorType string) {
	if m == nil {
		return
	}
	m.Repeated.WithLabelValues(errorType).Inc()
}

func (m *Metrics) IncWarning() {
	if m == nil {
		return
	}
	m.Warnings.Inc()
}

func (m *Metrics) IncAlertFailure() {
	if m == nil {
		return
	}
	m.AlertFailures.Inc()
}

func (m *Metrics) IncDeferred() {
	if m == nil {
		return
	}
	m.Deferred.Inc()
}
