// Package bus ships audit events to the analytics pipeline over the message bus.
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"idauth/internal/platform/kafka"
	audit "idauth/pkg/platform/audit"
)

type Store struct {
	publisher kafka.Publisher
	topic     string
}

func New(publisher kafka.Publisher, topic string) *Store {
	return &Store{publisher: publisher, topic: topic}
}

// Append publishes the event keyed by subject so one identity's events stay ordered.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return s.publisher.Publish(ctx, &kafka.Message{
		Topic:   s.topic,
		Key:     []byte(event.Subject),
		Value:   body,
		Headers: map[string]string{"category": string(event.Category), "action": event.Action},
	})
}
