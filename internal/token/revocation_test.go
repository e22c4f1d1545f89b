package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idauth/internal/token"
)

func TestRevocationLists(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lists := map[string]token.RevocationList{
		"memory": token.NewInMemoryRevocationList(),
		"redis":  token.NewRedisRevocationList(client),
	}
	for name, list := range lists {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			revoked, err := list.IsRevoked(ctx, "value-1")
			require.NoError(t, err)
			assert.False(t, revoked)

			added, err := list.Add(ctx, "value-1", time.Minute)
			require.NoError(t, err)
			assert.True(t, added)

			added, err = list.Add(ctx, "value-1", time.Minute)
			require.NoError(t, err)
			assert.False(t, added, "second add of the same value must lose")

			revoked, err = list.IsRevoked(ctx, "value-1")
			require.NoError(t, err)
			assert.True(t, revoked)
		})
	}

	t.Run("redis entries expire", func(t *testing.T) {
		ctx := context.Background()
		list := token.NewRedisRevocationList(client)
		_, err := list.Add(ctx, "short", time.Second)
		require.NoError(t, err)
		mr.FastForward(2 * time.Second)
		revoked, err := list.IsRevoked(ctx, "short")
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}
