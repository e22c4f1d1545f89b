package token

import (
	"context"
	"encoding/json"
	"fmt"

	"idauth/internal/platform/kafka"
	"idauth/pkg/domain"
)

//go:generate mockgen -source=notifier.go -destination=mocks/mocks.go -package=mocks Notifier

// Notifier detaches a device from push notifications when its session ends.
type Notifier interface {
	UnassignDevice(ctx context.Context, mobileUID, userIdentifier string, sessionType domain.SessionType) error
}

type unassignMessage struct {
	MobileUID      string             `json:"mobileUid"`
	UserIdentifier string             `json:"userIdentifier,omitempty"`
	SessionType    domain.SessionType `json:"sessionType"`
}

// BusNotifier publishes unassign requests for the notification service.
type BusNotifier struct {
	publisher kafka.Publisher
	topic     string
}

func NewBusNotifier(publisher kafka.Publisher, topic string) *BusNotifier {
	return &BusNotifier{publisher: publisher, topic: topic}
}

func (n *BusNotifier) UnassignDevice(ctx context.Context, mobileUID, userIdentifier string, sessionType domain.SessionType) error {
	body, err := json.Marshal(unassignMessage{
		MobileUID:      mobileUID,
		UserIdentifier: userIdentifier,
		SessionType:    sessionType,
	})
	if err != nil {
		return fmt.Errorf("encode unassign request: %w", err)
	}
	return n.publisher.Publish(ctx, &kafka.Message{
		Topic: n.topic,
		Key:   []byte(mobileUID),
		Value: body,
	})
}
