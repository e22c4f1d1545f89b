package circuit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerLifecycle(t *testing.T) {
	b := New("token-expiration-overrides", WithFailureThreshold(3), WithSuccessThreshold(2))
	assert.Equal(t, "token-expiration-overrides", b.Name())
	assert.Equal(t, "closed", b.State().String())

	t.Run("stays closed below the failure threshold", func(t *testing.T) {
		for range 2 {
			fallback, change := b.RecordFailure()
			assert.False(t, fallback)
			assert.False(t, change.Opened)
		}
		assert.False(t, b.IsOpen())
	})

	t.Run("opens on the third consecutive failure", func(t *testing.T) {
		fallback, change := b.RecordFailure()
		assert.True(t, fallback)
		assert.True(t, change.Opened)
		assert.Equal(t, "open", b.State().String())

		// further failures keep it open without reporting a new transition
		fallback, change = b.RecordFailure()
		assert.True(t, fallback)
		assert.False(t, change.Opened)
	})

	t.Run("a failure between successes restarts recovery", func(t *testing.T) {
		primary, _ := b.RecordSuccess()
		assert.False(t, primary)
		b.RecordFailure()

		primary, change := b.RecordSuccess()
		assert.False(t, primary)
		assert.False(t, change.Closed)
		assert.True(t, b.IsOpen())
	})

	t.Run("closes after two consecutive successes", func(t *testing.T) {
		primary, change := b.RecordSuccess()
		assert.True(t, primary)
		assert.True(t, change.Closed)
		assert.False(t, b.IsOpen())
	})
}

func TestBreakerSuccessResetsFailureRun(t *testing.T) {
	b := New("overrides", WithFailureThreshold(2))
	b.RecordFailure()
	primary, change := b.RecordSuccess()
	assert.True(t, primary)
	assert.False(t, change.Closed, "already closed")

	fallback, _ := b.RecordFailure()
	assert.False(t, fallback, "failure run restarted after the success")
}

func TestBreakerDefaultsAndReset(t *testing.T) {
	b := New("overrides", WithFailureThreshold(0), WithSuccessThreshold(-1))
	for range 4 {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen(), "non-positive thresholds keep the default of five")
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	fallback, _ := b.RecordFailure()
	assert.False(t, fallback)
}

func TestBreakerConcurrentRecording(t *testing.T) {
	b := New("overrides", WithFailureThreshold(50))
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.RecordFailure()
		}()
	}
	wg.Wait()
	assert.True(t, b.IsOpen())
}

func TestBreakerCooldownAdmitsTrials(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	b := New("audit-sink", WithFailureThreshold(1), WithCooldown(30*time.Second))
	b.now = func() time.Time { return now }

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.False(t, b.Allow(), "open and still cooling down")

	now = now.Add(30 * time.Second)
	assert.True(t, b.Allow(), "trial admitted after cooldown")

	// a failed trial re-arms the cooldown
	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(30 * time.Second)
	assert.True(t, b.Allow())
	b.RecordSuccess()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}

func TestBreakerWithoutCooldownStaysShut(t *testing.T) {
	b := New("overrides", WithFailureThreshold(1))
	b.RecordFailure()
	b.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	assert.False(t, b.Allow())
}
