package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatches by topic", func(t *testing.T) {
		var got string
		r := NewRouter(nil, nil)
		r.Register("a", HandlerFunc(func(_ context.Context, m *Message) error {
			got = string(m.Value)
			return nil
		}))
		require.NoError(t, r.Handle(ctx, &Message{Topic: "a", Value: []byte("x")}))
		assert.Equal(t, "x", got)
		assert.ElementsMatch(t, []string{"a"}, r.Topics())
	})

	t.Run("falls back for unknown topics", func(t *testing.T) {
		fallbackErr := errors.New("fallback")
		r := NewRouter(nil, HandlerFunc(func(context.Context, *Message) error { return fallbackErr }))
		assert.ErrorIs(t, r.Handle(ctx, &Message{Topic: "b"}), fallbackErr)
	})

	t.Run("skips unknown topics without fallback", func(t *testing.T) {
		r := NewRouter(nil, nil)
		assert.NoError(t, r.Handle(ctx, &Message{Topic: "b"}))
	})
}

func TestMemoryBusDelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delivered := make(chan *Message, 1)
	bus := NewMemoryBus(HandlerFunc(func(_ context.Context, m *Message) error {
		delivered <- m
		return nil
	}), nil, 1)
	go func() { _ = bus.Run(ctx) }()

	require.NoError(t, bus.Publish(ctx, &Message{Topic: "t", Key: []byte("k")}))
	select {
	case m := <-delivered:
		assert.Equal(t, "k", string(m.Key))
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
	assert.Len(t, bus.Published(), 1)
}
