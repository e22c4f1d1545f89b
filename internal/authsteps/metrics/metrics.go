package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the step orchestrator.
type Metrics struct {
	Verifications    *prometheus.CounterVec
	AttemptsExceeded *prometheus.CounterVec
	Completed        *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
}

// New creates a new Metrics instance. Call once per process.
func New() *Metrics {
	return &Metrics{
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idauth_auth_steps_verifications_total",
			Help: "Verify calls by schema, method and outcome",
		}, []string{"schema", "method", "outcome"}), // outcome: process code name or "error"
		AttemptsExceeded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idauth_auth_steps_attempts_exceeded_total",
			Help: "Steps closed because their attempt budget ran out",
		}, []string{"schema", "method"}),
		Completed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idauth_auth_steps_completed_total",
			Help: "Processes finalized by schema",
		}, []string{"schema"}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idauth_auth_steps_provider_duration_seconds",
			Help:    "Latency of provider verify calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

func (m *Metrics) IncVerification(schema, method, outcome string) {
	if m != nil {
		m.Verifications.WithLabelValues(schema, method, outcome).Inc()
	}
}

func (m *Metrics) IncAttemptsExceeded(schema, method string) {
	if m != nil {
		m.AttemptsExceeded.WithLabelValues(schema, method).Inc()
	}
}

func (m *Metrics) IncCompleted(schema string) {
	if m != nil {
		m.Completed.WithLabelValues(schema).Inc()
	}
}

func (m *Metrics) ObserveProvider(method string, d time.Duration) {
	if m != nil {
		m.ProviderLatency.WithLabelValues(method).Observe(d.Seconds())
	}
}
