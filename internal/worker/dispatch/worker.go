package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookinglabs/booking-pipeline/internal/service/models/message"
	"github.com/bookinglabs/booking-pipeline/internal/transport/publisher"
)

// messageFolder is the folder surface the worker needs.
type messageFolder interface {
	GetAndLock(ctx context.Context, count int) ([]message.Message, error)
	Settle(ctx context.Context, msg message.Message) error
	Fail(ctx context.Context, msgs []message.Message) error
}

// Worker periodically leases due messages from a folder and attempts delivery
// through a publisher. Each message is settled or failed individually; one
// delivery failure never aborts the batch.
type Worker struct {
	name         string
	folder       messageFolder
	publisher    publisher.Publisher
	pollInterval time.Duration
	batchSize    int
	stopCh       chan struct{}
}

// NewWorker creates a new dispatch worker.
func NewWorker(
	name string,
	folder messageFolder,
	publisher publisher.Publisher,
	pollInterval time.Duration,
	batchSize int,
) *Worker {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 4
	}

	return &Worker{
		name:         name,
		folder:       folder,
		publisher:    publisher,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		stopCh:       make(chan struct{}),
	}
}

// Start begins dispatching messages. It blocks until the context is canceled
// or Stop is called; an iteration already in flight completes naturally.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Dispatch worker started",
		"worker", w.name,
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Dispatch worker shutting down", "worker", w.name)

			return
		case <-w.stopCh:
			slog.Info("Dispatch worker stopped", "worker", w.name)

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// processMessages leases a batch and attempts delivery message by message.
// Storage errors abort the iteration only; the next tick retries.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.folder.GetAndLock(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to lease messages", "worker", w.name, "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Dispatching messages", "worker", w.name, "count", len(messages))

	for _, msg := range messages {
		if err := w.publisher.Send(ctx, msg); err != nil {
			slog.Warn("Failed to deliver message, will retry",
				"worker", w.name,
				"correlation_id", msg.CorrelationID,
				"attempt_count", msg.AttemptCount,
				"error", err,
			)

			if err := w.folder.Fail(ctx, []message.Message{msg}); err != nil {
				slog.Error("Failed to persist retry state",
					"worker", w.name,
					"correlation_id", msg.CorrelationID,
					"error", err,
				)
			}

			continue
		}

		if err := w.folder.Settle(ctx, msg); err != nil {
			slog.Error("Failed to settle delivered message",
				"worker", w.name,
				"correlation_id", msg.CorrelationID,
				"error", err,
			)

			continue
		}

		slog.Info("Message delivered",
			"worker", w.name,
			"correlation_id", msg.CorrelationID,
		)
	}
}
