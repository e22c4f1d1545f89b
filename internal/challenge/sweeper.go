package challenge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"idauth/internal/challenge/metrics"
	"idauth/pkg/platform/sentinel"
	"idauth/pkg/requestcontext"
)

const sweepBatch = 500

// Sweeper fails launched challenges whose result never arrived. It applies no
// reducer: a missing result is not evidence against the device.
type Sweeper struct {
	store   Store
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewSweeper(store Store, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, timeout: timeout, metrics: m, logger: logger}
}

// SweepOnce expires one batch of launched challenges older than the timeout.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	stale, err := s.store.ListStale(ctx, StatusLaunched, now.Add(-s.timeout), sweepBatch)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, ch := range stale {
		ch.Status = StatusFailed
		ch.Error = TimeoutError
		ch.UpdatedAt = now
		if err := s.store.Update(ctx, ch, StatusLaunched); err != nil {
			// superseded or already resolved since it was listed
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return swept, err
		}
		swept++
	}
	s.metrics.AddSwept(swept)
	return swept, nil
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "challenge sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.InfoContext(ctx, "expired launched challenges", "count", n)
			}
		}
	}
}
