package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookinglabs/booking-pipeline/internal/dal/interfaces/imessagestore"
	"github.com/bookinglabs/booking-pipeline/internal/dal/repositories/messages/memory"
	"github.com/bookinglabs/booking-pipeline/internal/service/models/message"
	"github.com/bookinglabs/booking-pipeline/internal/service/services/folder"
)

// flakyPublisher fails delivery for the configured correlation ids.
type flakyPublisher struct {
	mu       sync.Mutex
	failFor  map[string]bool
	sent     []string
	rejected []string
}

func (p *flakyPublisher) Send(_ context.Context, msg message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failFor[msg.CorrelationID] {
		p.rejected = append(p.rejected, msg.CorrelationID)

		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, msg.CorrelationID)

	return nil
}

// recordingFolder records settle/fail calls per message.
type recordingFolder struct {
	messages []message.Message
	lockErr  error
	settled  []string
	failed   []string
}

func (f *recordingFolder) GetAndLock(_ context.Context, count int) ([]message.Message, error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	if len(f.messages) > count {
		return f.messages[:count], nil
	}

	return f.messages, nil
}

func (f *recordingFolder) Settle(_ context.Context, msg message.Message) error {
	f.settled = append(f.settled, msg.CorrelationID)

	return nil
}

func (f *recordingFolder) Fail(_ context.Context, msgs []message.Message) error {
	for _, msg := range msgs {
		f.failed = append(f.failed, msg.CorrelationID)
	}

	return nil
}

func TestProcessMessagesIsolatesFailures(t *testing.T) {
	fld := &recordingFolder{}
	for _, correlationID := range []string{"ok-1", "bad-1", "ok-2", "bad-2"} {
		msg, err := message.New(correlationID, "payload")
		require.NoError(t, err)
		fld.messages = append(fld.messages, msg)
	}

	pub := &flakyPublisher{failFor: map[string]bool{"bad-1": true, "bad-2": true}}
	w := NewWorker("outbox", fld, pub, time.Second, 4)

	w.processMessages(context.Background())

	// Each message's outcome is independent of its siblings.
	assert.ElementsMatch(t, []string{"ok-1", "ok-2"}, fld.settled)
	assert.ElementsMatch(t, []string{"bad-1", "bad-2"}, fld.failed)
	assert.ElementsMatch(t, []string{"ok-1", "ok-2"}, pub.sent)
	assert.ElementsMatch(t, []string{"bad-1", "bad-2"}, pub.rejected)
}

func TestProcessMessagesStorageErrorAbortsIteration(t *testing.T) {
	fld := &recordingFolder{lockErr: imessagestore.ErrStorage}
	pub := &flakyPublisher{}
	w := NewWorker("outbox", fld, pub, time.Second, 4)

	w.processMessages(context.Background())

	assert.Empty(t, pub.sent)
	assert.Empty(t, fld.settled)
	assert.Empty(t, fld.failed)
}

func TestProcessMessagesAgainstFolder(t *testing.T) {
	store := memory.NewMessageStore(30 * time.Second)
	fld := folder.New(store, folder.RemoveOnSuccess)
	ctx := context.Background()

	for _, correlationID := range []string{"ok-1", "bad-1"} {
		msg, err := message.New(correlationID, "payload")
		require.NoError(t, err)
		require.NoError(t, fld.Add(ctx, msg))
	}

	pub := &flakyPublisher{failFor: map[string]bool{"bad-1": true}}
	w := NewWorker("outbox", fld, pub, time.Second, 4)

	w.processMessages(ctx)

	// Delivered message is removed: its correlation id is free again.
	okMsg, err := message.New("ok-1", "payload")
	require.NoError(t, err)
	assert.NoError(t, fld.Add(ctx, okMsg))

	// Failed message is still queued with backoff: the id stays taken.
	badMsg, err := message.New("bad-1", "payload")
	require.NoError(t, err)
	assert.ErrorIs(t, fld.Add(ctx, badMsg), imessagestore.ErrDuplicateMessage)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	fld := &recordingFolder{}
	w := NewWorker("outbox", fld, &flakyPublisher{}, 10*time.Millisecond, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}

func TestStop(t *testing.T) {
	fld := &recordingFolder{}
	w := NewWorker("outbox", fld, &flakyPublisher{}, 10*time.Millisecond, 4)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
