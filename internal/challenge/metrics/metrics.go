package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for challenge correlation.
type Metrics struct {
	Created        *prometheus.CounterVec
	Launched       *prometheus.CounterVec
	Completed      *prometheus.CounterVec
	StaleCallbacks *prometheus.CounterVec
	Swept          prometheus.Counter
}

// New creates a new Metrics instance. Call once per process.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idauth_challenges_created_total",
			Help: "Challenges created by kind",
		}, []string{"kind"}),
		Launched: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idauth_challenges_launched_total",
			Help: "Verification requests published by kind",
		}, []string{"kind"}),
		Completed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idauth_challenges_completed_total",
			Help: "Challenge results by kind and outcome",
		}, []string{"kind", "outcome"}), // outcome: "succeeded", "failed"
		StaleCallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idauth_challenges_stale_callbacks_total",
			Help: "Results discarded because the nonce no longer matched a pending challenge",
		}, []string{"kind"}),
		Swept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idauth_challenges_swept_total",
			Help: "Launched challenges failed by the timeout sweep",
		}),
	}
}

func (m *Metrics) IncCreated(kind string) {
	if m != nil {
		m.Created.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncLaunched(kind string) {
	if m != nil {
		m.Launched.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncCompleted(kind, outcome string) {
	if m != nil {
		m.Completed.WithLabelValues(kind, outcome).Inc()
	}
}

func (m *Metrics) IncStale(kind string) {
	if m != nil {
		m.StaleCallbacks.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) AddSwept(n int) {
	if m != nil {
		m.Swept.Add(float64(n))
	}
}
