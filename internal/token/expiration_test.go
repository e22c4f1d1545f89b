package token_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"idauth/internal/token"
	"idauth/pkg/domain"
	"idauth/pkg/platform/circuit"
)

type countingOverrides struct {
	inner *token.InMemoryOverrides
	calls atomic.Int32
	err   error
}

func (c *countingOverrides) ListOverrides(ctx context.Context, platform domain.PlatformType, sessionType domain.SessionType) ([]token.Override, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.ListOverrides(ctx, platform, sessionType)
}

var defaults = map[domain.SessionType]time.Duration{
	domain.SessionTypeUser: 30 * 24 * time.Hour,
}

func android(version string) domain.Headers {
	return domain.Headers{MobileUID: "device-1", PlatformType: domain.PlatformAndroid, AppVersion: version}
}

func TestExpirationResolver(t *testing.T) {
	ctx := context.Background()
	overrides := func() *countingOverrides {
		return &countingOverrides{inner: token.NewInMemoryOverrides(
			token.Override{PlatformType: domain.PlatformAndroid, MinAppVersion: "4.0.0", SessionType: domain.SessionTypeUser, Lifetime: 7 * 24 * time.Hour},
			token.Override{PlatformType: domain.PlatformAndroid, MinAppVersion: "4.5", SessionType: domain.SessionTypeUser, Lifetime: 90 * 24 * time.Hour},
		)}
	}

	t.Run("highest matching minimum version wins", func(t *testing.T) {
		r := token.NewExpirationResolver(overrides(), defaults, 8, time.Minute)
		assert.Equal(t, 90*24*time.Hour, r.Resolve(ctx, domain.SessionTypeUser, android("4.10.1")))
		assert.Equal(t, 7*24*time.Hour, r.Resolve(ctx, domain.SessionTypeUser, android("4.4.9")))
	})

	t.Run("older clients and other platforms use the default", func(t *testing.T) {
		r := token.NewExpirationResolver(overrides(), defaults, 8, time.Minute)
		assert.Equal(t, 30*24*time.Hour, r.Resolve(ctx, domain.SessionTypeUser, android("3.9")))

		ios := android("5.0")
		ios.PlatformType = domain.PlatformIOS
		assert.Equal(t, 30*24*time.Hour, r.Resolve(ctx, domain.SessionTypeUser, ios))
		assert.Equal(t, 30*24*time.Hour, r.Resolve(ctx, domain.SessionTypeUser, android("not-a-version")))
	})

	t.Run("results are cached until invalidated", func(t *testing.T) {
		store := overrides()
		r := token.NewExpirationResolver(store, defaults, 8, time.Minute)
		r.Resolve(ctx, domain.SessionTypeUser, android("4.6"))
		r.Resolve(ctx, domain.SessionTypeUser, android("4.6"))
		assert.Equal(t, int32(1), store.calls.Load())

		store.inner.Set()
		assert.Equal(t, 90*24*time.Hour, r.Resolve(ctx, domain.SessionTypeUser, android("4.6")))
		r.Invalidate()
		assert.Equal(t, 30*24*time.Hour, r.Resolve(ctx, domain.SessionTypeUser, android("4.6")))
		assert.Equal(t, int32(2), store.calls.Load())
	})

	t.Run("store failures fall back and open the breaker", func(t *testing.T) {
		store := overrides()
		store.err = errors.New("db down")
		breaker := circuit.New("test", circuit.WithFailureThreshold(2))
		r := token.NewExpirationResolver(store, defaults, 8, time.Minute, token.WithResolverBreaker(breaker))

		for i := 0; i < 4; i++ {
			assert.Equal(t, 30*24*time.Hour, r.Resolve(ctx, domain.SessionTypeUser, android("4.6")))
		}
		assert.True(t, breaker.IsOpen())
		assert.Equal(t, int32(2), store.calls.Load())
	})
}
