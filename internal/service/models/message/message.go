package message

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DefaultLease is the lock lease window granted by GetAndLock.
const DefaultLease = 30 * time.Second

// Message represents a single unit of work persisted in an outbox or inbox
// folder. The correlation id ties the message to one logical business
// operation; only one non-completed row may exist per correlation id.
type Message struct {
	ID            int64
	CorrelationID string
	Payload       []byte
	MessageType   string
	AttemptCount  int
	LastAttempt   *time.Time
	LockExpiry    *time.Time
	RetryAfter    *time.Time
	CompletedOn   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New builds a message from a typed payload. The payload is serialized to
// JSON and its type name recorded for diagnostics.
func New[T any](correlationID string, payload T) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now().UTC()

	return Message{
		CorrelationID: correlationID,
		Payload:       data,
		MessageType:   fmt.Sprintf("%T", payload),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Decode deserializes the message payload into the requested type.
func Decode[T any](msg Message) (T, error) {
	var payload T
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return payload, nil
}

// Lock leases the message to the caller until now + lease. Eligibility checks
// treat a message with a future lock expiry as claimed.
func (m *Message) Lock(lease time.Duration) {
	expiry := time.Now().UTC().Add(lease)
	m.LockExpiry = &expiry
	m.UpdatedAt = time.Now().UTC()
}

// Fail records a failed delivery attempt: the next retry is scheduled with
// exponential backoff (2^AttemptCount seconds), the attempt count is
// incremented and the lock is released. Calling twice compounds the backoff.
func (m *Message) Fail() {
	now := time.Now().UTC()
	retryAfter := now.Add(time.Duration(math.Pow(2, float64(m.AttemptCount))) * time.Second)

	m.RetryAfter = &retryAfter
	m.AttemptCount++
	m.LastAttempt = &now
	m.LockExpiry = nil
	m.UpdatedAt = now
}

// Complete marks the message as successfully delivered.
func (m *Message) Complete() {
	now := time.Now().UTC()
	m.CompletedOn = &now
	m.UpdatedAt = now
}

// Eligible reports whether the message may be fetched or locked at the given
// instant: not completed, not leased and not waiting out a retry backoff.
func (m *Message) Eligible(now time.Time) bool {
	if m.CompletedOn != nil {
		return false
	}
	if m.LockExpiry != nil && now.Before(*m.LockExpiry) {
		return false
	}
	if m.RetryAfter != nil && now.Before(*m.RetryAfter) {
		return false
	}

	return true
}
