package purge

import (
	"context"
	"log/slog"
	"time"
)

// agedRemover is the store surface the worker needs.
type agedRemover interface {
	RemoveAged(ctx context.Context, minAge time.Duration) error
}

// Worker periodically removes completed messages past the retention window.
// Purge failures are logged and the loop continues.
type Worker struct {
	name     string
	store    agedRemover
	interval time.Duration
	minAge   time.Duration
	stopCh   chan struct{}
}

// NewWorker creates a new purge worker.
func NewWorker(name string, store agedRemover, interval, minAge time.Duration) *Worker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if minAge <= 0 {
		minAge = 10 * time.Minute
	}

	return &Worker{
		name:     name,
		store:    store,
		interval: interval,
		minAge:   minAge,
		stopCh:   make(chan struct{}),
	}
}

// Start begins purging. It blocks until the context is canceled or Stop is
// called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Purge worker started",
		"worker", w.name,
		"interval", w.interval,
		"min_age", w.minAge,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Purge worker shutting down", "worker", w.name)

			return
		case <-w.stopCh:
			slog.Info("Purge worker stopped", "worker", w.name)

			return
		case <-ticker.C:
			if err := w.store.RemoveAged(ctx, w.minAge); err != nil {
				slog.Error("Failed to purge aged messages", "worker", w.name, "error", err)
			}
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}
