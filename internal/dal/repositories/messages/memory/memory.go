package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bookinglabs/booking-pipeline/internal/dal/interfaces/imessagestore"
	"github.com/bookinglabs/booking-pipeline/internal/service/models/message"
)

// MessageStore is an in-memory message folder store. It implements the same
// contract as the PostgreSQL repository and provides the same claim
// guarantees under a single mutex, which makes it suitable for tests and for
// single-process hosting without a database.
type MessageStore struct {
	mu    sync.Mutex
	rows  map[int64]message.Message
	lease time.Duration
	seq   int64
}

// NewMessageStore creates an empty in-memory store.
func NewMessageStore(lease time.Duration) *MessageStore {
	if lease <= 0 {
		lease = message.DefaultLease
	}

	return &MessageStore{
		rows:  make(map[int64]message.Message),
		lease: lease,
	}
}

// Add inserts a new message. Adding a second non-completed message with the
// same correlation id fails with ErrDuplicateMessage.
func (s *MessageStore) Add(_ context.Context, msg message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.CorrelationID == msg.CorrelationID && row.CompletedOn == nil {
			return imessagestore.ErrDuplicateMessage
		}
	}

	s.seq++
	msg.ID = s.seq
	s.rows[msg.ID] = msg

	return nil
}

// Update overwrites bookkeeping fields by correlation id, skipping rows that
// no longer exist.
func (s *MessageStore) Update(_ context.Context, msgs []message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range msgs {
		for id, row := range s.rows {
			// Historical completed rows sharing a reused correlation id are
			// not bookkeeping targets.
			if row.CorrelationID != msg.CorrelationID || row.CompletedOn != nil {
				continue
			}
			row.AttemptCount = msg.AttemptCount
			row.LastAttempt = msg.LastAttempt
			row.LockExpiry = msg.LockExpiry
			row.RetryAfter = msg.RetryAfter
			row.CompletedOn = msg.CompletedOn
			row.UpdatedAt = time.Now().UTC()
			s.rows[id] = row
		}
	}

	return nil
}

// GetAll returns every eligible message without leasing it.
func (s *MessageStore) GetAll(_ context.Context) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.eligible(time.Now().UTC()), nil
}

// GetAndLock claims up to count eligible messages, oldest-due first, and
// stamps each with a fresh lease. The mutex makes the select+lock atomic, so
// concurrent callers never receive overlapping rows.
func (s *MessageStore) GetAndLock(_ context.Context, count int) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	candidates := s.eligible(now)
	if len(candidates) > count {
		candidates = candidates[:count]
	}

	expiry := now.Add(s.lease)
	for i := range candidates {
		candidates[i].LockExpiry = &expiry
		candidates[i].UpdatedAt = now
		s.rows[candidates[i].ID] = candidates[i]
	}

	return candidates, nil
}

// Remove hard-deletes the rows with the given correlation ids.
func (s *MessageStore) Remove(_ context.Context, correlationIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, correlationID := range correlationIDs {
		for id, row := range s.rows {
			if row.CorrelationID == correlationID {
				delete(s.rows, id)
			}
		}
	}

	return nil
}

// RemoveAged hard-deletes completed rows older than the retention window.
func (s *MessageStore) RemoveAged(_ context.Context, minAge time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-minAge)
	for id, row := range s.rows {
		if row.CompletedOn != nil && row.CompletedOn.Before(cutoff) {
			delete(s.rows, id)
		}
	}

	return nil
}

// eligible returns pending rows whose lease and backoff have elapsed, most
// overdue first. Callers must hold the mutex.
func (s *MessageStore) eligible(now time.Time) []message.Message {
	var candidates []message.Message
	for _, row := range s.rows {
		if row.Eligible(now) {
			candidates = append(candidates, row)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		switch {
		case a.RetryAfter == nil && b.RetryAfter == nil:
			return a.ID < b.ID
		case a.RetryAfter == nil:
			return true
		case b.RetryAfter == nil:
			return false
		case a.RetryAfter.Equal(*b.RetryAfter):
			return a.ID < b.ID
		default:
			return a.RetryAfter.Before(*b.RetryAfter)
		}
	})

	return candidates
}
