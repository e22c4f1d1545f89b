package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"

	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/platform/sentinel"
)

func TestConsumerDeliver(t *testing.T) {
	ctx := context.Background()
	consumer := func(h Handler) *Consumer {
		return &Consumer{
			handler: h,
			logger:  slog.Default(),
			backoff: func() backoff.BackOff { return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2) },
		}
	}
	counting := func(calls *int, results ...error) Handler {
		return HandlerFunc(func(context.Context, *Message) error {
			i := *calls
			*calls++
			if i < len(results) {
				return results[i]
			}
			return results[len(results)-1]
		})
	}
	msg := &Message{Topic: "nfc.results", Key: []byte("k")}

	t.Run("transient failure is retried", func(t *testing.T) {
		calls := 0
		err := consumer(counting(&calls, errors.New("redis down"), errors.New("redis down"), nil)).deliver(ctx, msg)
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("persistent failure holds the message back", func(t *testing.T) {
		calls := 0
		err := consumer(counting(&calls, errors.New("redis down"))).deliver(ctx, msg)
		assert.EqualError(t, err, "redis down")
		assert.Equal(t, 3, calls)
	})

	t.Run("stale result is skipped without retries", func(t *testing.T) {
		calls := 0
		err := consumer(counting(&calls, dErrors.New(dErrors.CodeNotFound, "no challenge for nonce"))).deliver(ctx, msg)
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("missing record is skipped", func(t *testing.T) {
		calls := 0
		err := consumer(counting(&calls, fmt.Errorf("load: %w", sentinel.ErrNotFound))).deliver(ctx, msg)
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("undecodable message is skipped", func(t *testing.T) {
		calls := 0
		err := consumer(counting(&calls, dErrors.Wrap(errors.New("bad json"), dErrors.CodeBadRequest, "decode"))).deliver(ctx, msg)
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}
