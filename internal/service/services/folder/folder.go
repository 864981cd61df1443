package folder

import (
	"context"

	"github.com/bookinglabs/booking-pipeline/internal/dal/interfaces/imessagestore"
	"github.com/bookinglabs/booking-pipeline/internal/service/models/message"
)

// CompletionPolicy selects what happens to a message after successful
// delivery: outboxes remove the row, inboxes keep it for audit with a
// completion timestamp.
type CompletionPolicy int

const (
	RemoveOnSuccess CompletionPolicy = iota
	MarkCompleted
)

// Folder is the producer/consumer facade over a message store. It is the
// single entry point for queueing, leasing and settling messages in an
// outbox or inbox.
type Folder struct {
	store  imessagestore.IMessageStore
	policy CompletionPolicy
}

// New creates a folder over the given store with the given completion policy.
func New(store imessagestore.IMessageStore, policy CompletionPolicy) *Folder {
	return &Folder{
		store:  store,
		policy: policy,
	}
}

// Add queues a new message. ErrDuplicateMessage means the correlation id is
// already queued; producers must not blindly retry the add.
func (f *Folder) Add(ctx context.Context, msg message.Message) error {
	return f.store.Add(ctx, msg)
}

// Get returns eligible messages without leasing them. Callers mutating the
// returned items must persist the changes themselves via Fail or Remove.
func (f *Folder) Get(ctx context.Context) ([]message.Message, error) {
	return f.store.GetAll(ctx)
}

// GetAndLock leases up to count eligible messages. The caller must settle
// each one before the lease elapses or another worker may re-claim it.
func (f *Folder) GetAndLock(ctx context.Context, count int) ([]message.Message, error) {
	return f.store.GetAndLock(ctx, count)
}

// Complete marks the messages as successfully delivered.
func (f *Folder) Complete(ctx context.Context, msgs []message.Message) error {
	for i := range msgs {
		msgs[i].Complete()
	}

	return f.store.Update(ctx, msgs)
}

// Remove hard-deletes the messages with the given correlation ids.
func (f *Folder) Remove(ctx context.Context, correlationIDs []string) error {
	return f.store.Remove(ctx, correlationIDs)
}

// Fail records a failed delivery attempt for each message: backoff is
// scheduled, the attempt count incremented and the lock released, then the
// new state is persisted. Must be called for every message the caller
// attempted and failed to deliver.
func (f *Folder) Fail(ctx context.Context, msgs []message.Message) error {
	for i := range msgs {
		msgs[i].Fail()
	}

	return f.store.Update(ctx, msgs)
}

// Settle applies the folder's completion policy to a single successfully
// delivered message.
func (f *Folder) Settle(ctx context.Context, msg message.Message) error {
	if f.policy == RemoveOnSuccess {
		return f.store.Remove(ctx, []string{msg.CorrelationID})
	}

	return f.Complete(ctx, []message.Message{msg})
}
