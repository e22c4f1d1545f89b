package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func stores(t *testing.T, c *clock) map[string]Store {
	mem := NewMemoryStore()
	mem.now = c.now

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	rs := NewRedisStore(client, "idauth:")
	rs.now = c.now

	return map[string]Store{"memory": mem, "redis": rs}
}

func TestStoreSlidingWindow(t *testing.T) {
	ctx := context.Background()
	limit := Limit{Requests: 3, Window: time.Minute}

	for _, name := range []string{"memory", "redis"} {
		t.Run(name, func(t *testing.T) {
			c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
			store := stores(t, c)[name]
			key := Key(ClassVerify, "device-1")

			for i := range 3 {
				res, err := store.Allow(ctx, key, limit)
				require.NoError(t, err)
				assert.True(t, res.Allowed)
				assert.Equal(t, 2-i, res.Remaining)
				c.advance(10 * time.Second)
			}

			res, err := store.Allow(ctx, key, limit)
			require.NoError(t, err)
			assert.False(t, res.Allowed)
			assert.Equal(t, 0, res.Remaining)
			// first request at 10:00:00 leaves the window at 10:01:00
			assert.Equal(t, 30*time.Second, res.RetryAfter)

			c.advance(31 * time.Second)
			res, err = store.Allow(ctx, key, limit)
			require.NoError(t, err)
			assert.True(t, res.Allowed, "oldest request slid out of the window")

			other, err := store.Allow(ctx, Key(ClassVerify, "device-2"), limit)
			require.NoError(t, err)
			assert.True(t, other.Allowed)
			assert.Equal(t, 2, other.Remaining)
		})
	}
}

func TestStoreReset(t *testing.T) {
	ctx := context.Background()
	limit := Limit{Requests: 1, Window: time.Hour}

	for name, store := range stores(t, &clock{t: time.Now()}) {
		t.Run(name, func(t *testing.T) {
			key := Key(ClassAuthURL, "device-1")
			_, err := store.Allow(ctx, key, limit)
			require.NoError(t, err)

			res, err := store.Allow(ctx, key, limit)
			require.NoError(t, err)
			assert.False(t, res.Allowed)

			require.NoError(t, store.Reset(ctx, key))
			res, err = store.Allow(ctx, key, limit)
			require.NoError(t, err)
			assert.True(t, res.Allowed)
		})
	}
}

func TestKeyEscapesDelimiter(t *testing.T) {
	assert.Equal(t, "rl:verify:a_b", Key(ClassVerify, "a:b"))
	assert.NotEqual(t, Key(ClassVerify, "x:verify:y"), Key(ClassVerify, "x"))
}
