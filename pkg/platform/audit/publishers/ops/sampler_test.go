package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"

	audit "idauth/pkg/platform/audit"
)

func TestSampler(t *testing.T) {
	s := NewSampler(0.25)
	s.draw = func() float64 { return 0.3 }

	assert.False(t, s.Keep(string(audit.EventTokenRotated)), "draw above default rate")

	s.SetRate(audit.EventTokenRotated, 0.5)
	assert.True(t, s.Keep(string(audit.EventTokenRotated)))
	assert.False(t, s.Keep(string(audit.EventStepMethodSet)), "other actions keep the default")

	s.SetRate(audit.EventStepMethodSet, 7)
	s.draw = func() float64 { return 0.999 }
	assert.True(t, s.Keep(string(audit.EventStepMethodSet)), "rate clamped to 1")

	s.SetRate(audit.EventMethodVerified, -1)
	s.draw = func() float64 { return 0 }
	assert.False(t, s.Keep(string(audit.EventMethodVerified)), "rate clamped to 0")
}
