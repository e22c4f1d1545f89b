package kvcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idauth/pkg/platform/sentinel"
)

type payload struct {
	Name string `json:"name"`
}

func TestCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mem := NewMemory().WithClock(func() time.Time { return now })

	caches := map[string]struct {
		cache   Cache
		advance func(time.Duration)
	}{
		"memory": {cache: mem, advance: func(d time.Duration) { now = now.Add(d) }},
		"redis":  {cache: NewRedis(client, "test:"), advance: mr.FastForward},
	}

	for name, tc := range caches {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, SetJSON(ctx, tc.cache, "k", payload{Name: "a"}, time.Minute))
			got, err := GetJSON[payload](ctx, tc.cache, "k")
			require.NoError(t, err)
			assert.Equal(t, "a", got.Name)

			tc.advance(2 * time.Minute)
			_, err = tc.cache.Get(ctx, "k")
			assert.ErrorIs(t, err, sentinel.ErrNotFound)

			require.NoError(t, tc.cache.Set(ctx, "d", []byte("x"), time.Minute))
			require.NoError(t, tc.cache.Delete(ctx, "d"))
			_, err = tc.cache.Get(ctx, "d")
			assert.ErrorIs(t, err, sentinel.ErrNotFound)
		})
	}
}
