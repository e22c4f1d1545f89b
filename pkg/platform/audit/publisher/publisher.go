// Package publisher routes audit events to a sink.
//
// Compliance events are appended synchronously and a sink failure is returned
// to the caller. Security and operations events never fail the caller: when the
// sink is down or the circuit is open they are parked in a bounded retry buffer
// that Flush drains later. Operations events may be sampled.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	audit "idauth/pkg/platform/audit"
	"idauth/pkg/platform/audit/publishers/ops"
	"idauth/pkg/platform/audit/publishers/security"
	"idauth/pkg/platform/circuit"
	"idauth/pkg/requestcontext"
)

// ErrBufferFull is returned by async emission when the queue is saturated.
var ErrBufferFull = errors.New("audit buffer full")

const flushBatch = 100

type Publisher struct {
	store   audit.Store
	breaker *circuit.Breaker
	retry   *security.RingBuffer
	sampler *ops.Sampler
	metrics *ops.Metrics
	logger  *slog.Logger

	async     chan audit.Event
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit enqueue events for a background goroutine.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.async = make(chan audit.Event, size)
		}
	}
}

// WithCircuitBreaker parks non-compliance events without touching the sink
// while b is open. Give b a cooldown so the sink is tried again.
func WithCircuitBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

func WithRetryBuffer(b *security.RingBuffer) Option {
	return func(p *Publisher) {
		p.retry = b
	}
}

func WithSampler(s *ops.Sampler) Option {
	return func(p *Publisher) {
		p.sampler = s
	}
}

func WithMetrics(m *ops.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.async != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit records an event. The timestamp defaults to the request time and the
// category to the one registered for the action.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Category == audit.CategoryOperations && p.sampler != nil && !p.sampler.Keep(event.Action) {
		p.metrics.IncSampled()
		return nil
	}
	if event.Category == audit.CategoryCompliance || p.async == nil {
		return p.persist(ctx, event)
	}
	select {
	case p.async <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.park(event, "queue_full")
		return ErrBufferFull
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.async {
		_ = p.persist(context.Background(), event)
	}
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	if p.breaker != nil && !p.breaker.Allow() {
		if event.Category == audit.CategoryCompliance {
			return errors.New("audit sink unavailable")
		}
		p.park(event, "breaker_open")
		return nil
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.recordFailure()
		p.logger.WarnContext(ctx, "audit append failed",
			"action", event.Action,
			"category", event.Category,
			"error", err,
		)
		if event.Category == audit.CategoryCompliance || p.retry == nil {
			return err
		}
		p.park(event, "append_failed")
		return nil
	}
	p.recordSuccess(event)
	return nil
}

func (p *Publisher) park(event audit.Event, reason string) {
	if p.retry != nil {
		p.retry.Enqueue(event)
		p.metrics.IncParked(reason)
	}
}

func (p *Publisher) recordFailure() {
	p.metrics.IncFailures()
	if p.breaker == nil {
		return
	}
	if _, change := p.breaker.RecordFailure(); change.Opened {
		p.logger.Warn("audit sink breaker opened", "breaker", p.breaker.Name())
	}
	p.metrics.SetBreakerOpen(p.breaker.IsOpen())
}

func (p *Publisher) recordSuccess(event audit.Event) {
	p.metrics.IncDelivered(string(event.Category))
	if p.breaker == nil {
		return
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.Info("audit sink breaker closed", "breaker", p.breaker.Name())
	}
	p.metrics.SetBreakerOpen(p.breaker.IsOpen())
}

// Flush retries parked events until the buffer is empty or the sink fails again.
func (p *Publisher) Flush(ctx context.Context) (int, error) {
	if p.retry == nil {
		return 0, nil
	}
	sent := 0
	for {
		if p.breaker != nil && !p.breaker.Allow() {
			return sent, nil
		}
		batch := p.retry.DequeueBatch(flushBatch)
		if len(batch) == 0 {
			return sent, nil
		}
		for i, event := range batch {
			if err := p.store.Append(ctx, event); err != nil {
				p.recordFailure()
				for _, rest := range batch[i:] {
					p.retry.Enqueue(rest)
				}
				return sent, err
			}
			p.recordSuccess(event)
			sent++
		}
	}
}

// Pending reports how many events wait in the retry buffer.
func (p *Publisher) Pending() int {
	if p.retry == nil {
		return 0
	}
	return p.retry.Len()
}

// Close stops the async goroutine after draining queued events.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.async != nil {
			close(p.async)
			p.wg.Wait()
		}
	})
}
