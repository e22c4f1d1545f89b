// Package ops holds the delivery controls for operations-category audit
// events: sampling and delivery metrics.
package ops

import (
	"math/rand/v2"
	"sync"

	audit "idauth/pkg/platform/audit"
)

// Sampler keeps a fraction of operations events. Rates are clamped to [0, 1].
type Sampler struct {
	mu       sync.RWMutex
	fallback float64
	rates    map[audit.AuditEvent]float64
	draw     func() float64
}

func NewSampler(rate float64) *Sampler {
	return &Sampler{fallback: clamp(rate), rates: map[audit.AuditEvent]float64{}, draw: rand.Float64}
}

// SetRate overrides the rate for one action, e.g. to thin out token rotations.
func (s *Sampler) SetRate(action audit.AuditEvent, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[action] = clamp(rate)
}

// Keep decides whether the event for action is delivered.
func (s *Sampler) Keep(action string) bool {
	s.mu.RLock()
	rate, ok := s.rates[audit.AuditEvent(action)]
	if !ok {
		rate = s.fallback
	}
	s.mu.RUnlock()

	switch {
	case rate >= 1:
		return true
	case rate <= 0:
		return false
	default:
		return s.draw() < rate
	}
}

func clamp(rate float64) float64 {
	return min(max(rate, 0), 1)
}
