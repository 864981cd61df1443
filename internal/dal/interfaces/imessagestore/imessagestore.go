package imessagestore

import (
	"context"
	"errors"
	"time"

	"github.com/bookinglabs/booking-pipeline/internal/service/models/message"
)

var (
	// ErrDuplicateMessage is returned by Add when a non-completed message
	// with the same correlation id already exists in the folder.
	ErrDuplicateMessage = errors.New("duplicate message for correlation id")

	// ErrStorage wraps transport or database failures from store operations.
	ErrStorage = errors.New("message store failure")
)

// IMessageStore defines the durable repository contract for a message folder.
type IMessageStore interface {
	// Add inserts a new message row.
	Add(ctx context.Context, msg message.Message) error

	// Update overwrites attempt/lock/retry/completed bookkeeping for each
	// message, matched by correlation id. Missing rows are skipped silently.
	Update(ctx context.Context, msgs []message.Message) error

	// GetAll returns every eligible message without leasing it.
	GetAll(ctx context.Context) ([]message.Message, error)

	// GetAndLock atomically claims up to count eligible messages, oldest-due
	// first, stamping each with a fresh lock lease. Concurrent callers never
	// receive overlapping rows.
	GetAndLock(ctx context.Context, count int) ([]message.Message, error)

	// Remove hard-deletes the rows with the given correlation ids. Removing
	// a missing id is a no-op.
	Remove(ctx context.Context, correlationIDs []string) error

	// RemoveAged hard-deletes completed rows whose CompletedOn is older than
	// now - minAge. Rows never completed are not purged.
	RemoveAged(ctx context.Context, minAge time.Duration) error
}
