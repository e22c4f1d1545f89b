//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idauth/internal/platform/config"
	"idauth/pkg/testutil/containers"
)

func TestBusRoundTrip(t *testing.T) {
	broker := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg := config.KafkaConfig{
		Brokers:       broker.Brokers,
		ClientID:      "idauth-test",
		ConsumerGroup: "idauth-test-" + uuid.NewString(),
	}
	topic := "integrity.attestation.results." + uuid.NewString()
	require.NoError(t, EnsureTopics(ctx, cfg, topic))
	require.NoError(t, EnsureTopics(ctx, cfg, topic), "existing topics are tolerated")

	producer, err := NewProducer(cfg, nil)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, producer.Ping(ctx))

	received := make(chan *Message, 1)
	router := NewRouter(nil, nil)
	router.Register(topic, HandlerFunc(func(_ context.Context, msg *Message) error {
		received <- msg
		return nil
	}))

	consumer, err := NewConsumer(cfg, router.Topics(), router, nil)
	require.NoError(t, err)
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- consumer.Run(runCtx) }()

	require.NoError(t, producer.Publish(ctx, &Message{
		Topic:   topic,
		Key:     []byte("device-1"),
		Value:   []byte(`{"nonce":"n-1","verdict":"MEETS_DEVICE_INTEGRITY"}`),
		Headers: map[string]string{"correlation_id": "c-1"},
	}))

	select {
	case msg := <-received:
		assert.Equal(t, "device-1", string(msg.Key))
		assert.Equal(t, "c-1", msg.Headers["correlation_id"])
		assert.JSONEq(t, `{"nonce":"n-1","verdict":"MEETS_DEVICE_INTEGRITY"}`, string(msg.Value))
	case <-ctx.Done():
		t.Fatal("message not consumed")
	}

	stop()
	<-done
}
