package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit delivery. All methods are safe on a nil receiver.
type Metrics struct {
	Delivered   *prometheus.CounterVec
	Sampled     prometheus.Counter
	Parked      *prometheus.CounterVec
	Failures    prometheus.Counter
	BreakerOpen prometheus.Gauge
}

// NewMetrics registers the audit metrics. Call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		Delivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idauth_audit_delivered_total",
			Help: "Audit events appended to the sink, by category",
		}, []string{"category"}),
		Sampled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idauth_audit_sampled_out_total",
			Help: "Operations events skipped by sampling",
		}),
		Parked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idauth_audit_parked_total",
			Help: "Audit events parked for retry, by reason",
		}, []string{"reason"}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idauth_audit_append_failures_total",
			Help: "Audit sink append failures",
		}),
		BreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "idauth_audit_breaker_open",
			Help: "1 while the audit sink breaker is open",
		}),
	}
}

func (m *Metrics) IncDelivered(category string) {
	if m != nil {
		m.Delivered.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) IncSampled() {
	if m != nil {
		m.Sampled.Inc()
	}
}

// IncParked counts an event moved to the retry buffer. reason is one of
// "breaker_open", "append_failed" or "queue_full".
func (m *Metrics) IncParked(reason string) {
	if m != nil {
		m.Parked.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncFailures() {
	if m != nil {
		m.Failures.Inc()
	}
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.Set(v)
}
