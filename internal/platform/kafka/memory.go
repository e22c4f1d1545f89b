package kafka

import (
	"context"
	"log/slog"
	"sync"
)

// MemoryBus delivers published messages to a Handler on a background goroutine.
// It stands in for the broker in development and tests.
type MemoryBus struct {
	handler Handler
	logger  *slog.Logger
	queue   chan *Message

	mu        sync.Mutex
	published []*Message
}

// NewMemoryBus creates an in-process bus. handler may be nil when only publishing is observed.
func NewMemoryBus(handler Handler, logger *slog.Logger, buffer int) *MemoryBus {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &MemoryBus{handler: handler, logger: logger, queue: make(chan *Message, buffer)}
}

// Publish records msg and enqueues it for delivery.
func (b *MemoryBus) Publish(ctx context.Context, msg *Message) error {
	b.mu.Lock()
	b.published = append(b.published, msg)
	b.mu.Unlock()
	if b.handler == nil {
		return nil
	}
	select {
	case b.queue <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Published returns a snapshot of everything published so far.
func (b *MemoryBus) Published() []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Message, len(b.published))
	copy(out, b.published)
	return out
}

// Run delivers queued messages until ctx is cancelled.
func (b *MemoryBus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-b.queue:
			if err := b.handler.Handle(ctx, msg); err != nil {
				b.logger.ErrorContext(ctx, "failed to handle message",
					"topic", msg.Topic,
					"key", string(msg.Key),
					"error", err,
				)
			}
		}
	}
}
