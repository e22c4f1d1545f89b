package worker

import (
	"context"
	"log/slog"
	"time"
)

// Flusher drains parked audit events.
type Flusher interface {
	Flush(ctx context.Context) (int, error)
}

// Worker periodically retries parked audit events so a sink outage delays
// delivery instead of losing events.
type Worker struct {
	flusher  Flusher
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(flusher Flusher, interval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{flusher: flusher, interval: interval, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := w.flusher.Flush(ctx)
			if err != nil {
				w.logger.WarnContext(ctx, "audit flush stopped", "sent", n, "error", err)
			} else if n > 0 {
				w.logger.InfoContext(ctx, "audit events flushed", "sent", n)
			}
		}
	}
}
