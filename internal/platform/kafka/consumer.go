package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/twmb/franz-go/pkg/kgo"

	"idauth/internal/platform/config"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/platform/sentinel"
)

const (
	deliverAttempts = 5
	deliverMaxWait  = 5 * time.Second
)

// Consumer reads from a consumer group and hands every record to a Handler.
// A failing record is retried with backoff. Records a redelivery cannot fix
// (not found, bad request) are logged and skipped. A record that keeps failing
// rewinds its partition and holds back its offset, so the next poll delivers
// it again.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
	backoff func() backoff.BackOff
}

// NewConsumer creates a group consumer for the given topics.
func NewConsumer(cfg config.KafkaConfig, topics []string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
		kgo.AutoCommitMarks(),
		kgo.BlockRebalanceOnPoll(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: client, handler: handler, logger: logger, backoff: defaultBackoff}, nil
}

func defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = deliverMaxWait
	return backoff.WithMaxRetries(b, deliverAttempts-1)
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		for _, fe := range fetches.Errors() {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", fe.Topic,
				"partition", fe.Partition,
				"error", fe.Err,
			)
		}
		rewind := make(map[string]map[int32]kgo.EpochOffset)
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			for _, rec := range p.Records {
				if err := c.deliver(ctx, fromRecord(rec)); err != nil {
					c.logger.ErrorContext(ctx, "message redelivery scheduled",
						"topic", rec.Topic,
						"partition", rec.Partition,
						"offset", rec.Offset,
						"error", err,
					)
					if rewind[rec.Topic] == nil {
						rewind[rec.Topic] = make(map[int32]kgo.EpochOffset)
					}
					rewind[rec.Topic][rec.Partition] = kgo.EpochOffset{Epoch: rec.LeaderEpoch, Offset: rec.Offset}
					return
				}
				c.client.MarkCommitRecords(rec)
			}
		})
		if len(rewind) > 0 {
			c.client.SetOffsets(rewind)
		}
		if err := c.client.CommitMarkedOffsets(ctx); err != nil && ctx.Err() == nil {
			c.logger.ErrorContext(ctx, "failed to commit offsets", "error", err)
		}
		c.client.AllowRebalance()
	}
}

// deliver hands msg to the handler, retrying transient failures. It returns
// an error only when the message should be delivered again later.
func (c *Consumer) deliver(ctx context.Context, msg *Message) error {
	err := backoff.Retry(func() error {
		err := c.handler.Handle(ctx, msg)
		if err != nil && skippable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(c.backoff(), ctx))
	if err == nil {
		return nil
	}
	if skippable(err) {
		c.logger.WarnContext(ctx, "skipping message",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}
	return err
}

// skippable reports whether redelivering would fail the same way.
func skippable(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound) ||
		dErrors.HasCode(err, dErrors.CodeNotFound) ||
		dErrors.HasCode(err, dErrors.CodeBadRequest)
}
