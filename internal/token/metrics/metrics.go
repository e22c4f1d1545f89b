package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the refresh token lifecycle.
type Metrics struct {
	Issued      *prometheus.CounterVec
	Rotated     prometheus.Counter
	Revoked     *prometheus.CounterVec
	Compromised prometheus.Counter
	Rejected    *prometheus.CounterVec
	Expired     prometheus.Counter
	Purged      prometheus.Counter
}

// New creates a new Metrics instance. Call once per process.
func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idauth_refresh_tokens_issued_total",
			Help: "Refresh tokens issued by session type",
		}, []string{"session_type"}),
		Rotated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idauth_refresh_tokens_rotated_total",
			Help: "Refresh tokens exchanged for a new value",
		}),
		Revoked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idauth_refresh_tokens_revoked_total",
			Help: "Refresh tokens revoked by session type",
		}, []string{"session_type"}),
		Compromised: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idauth_refresh_tokens_compromised_total",
			Help: "Refresh tokens flagged compromised by failed device checks",
		}),
		Rejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idauth_refresh_tokens_rejected_total",
			Help: "Refresh token validations that failed, by reason",
		}, []string{"reason"}),
		Expired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idauth_refresh_tokens_expired_total",
			Help: "Refresh tokens flagged expired by the sweep",
		}),
		Purged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idauth_refresh_tokens_purged_total",
			Help: "Refresh tokens deleted after retention",
		}),
	}
}

func (m *Metrics) IncIssued(sessionType string) {
	if m != nil {
		m.Issued.WithLabelValues(sessionType).Inc()
	}
}

func (m *Metrics) IncRotated() {
	if m != nil {
		m.Rotated.Inc()
	}
}

func (m *Metrics) IncRevoked(sessionType string) {
	if m != nil {
		m.Revoked.WithLabelValues(sessionType).Inc()
	}
}

func (m *Metrics) AddCompromised(n int) {
	if m != nil {
		m.Compromised.Add(float64(n))
	}
}

func (m *Metrics) IncRejected(reason string) {
	if m != nil {
		m.Rejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) AddExpired(n int) {
	if m != nil {
		m.Expired.Add(float64(n))
	}
}

func (m *Metrics) AddPurged(n int) {
	if m != nil {
		m.Purged.Add(float64(n))
	}
}
