package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingCreated struct {
	BookingID  int64  `json:"bookingId"`
	CustomerID int64  `json:"customerId"`
	Status     string `json:"status"`
}

func TestNewRoundTrip(t *testing.T) {
	payload := bookingCreated{BookingID: 42, CustomerID: 7, Status: "created"}

	msg, err := New("corr-1", payload)
	require.NoError(t, err)

	assert.Equal(t, "corr-1", msg.CorrelationID)
	assert.Equal(t, 0, msg.AttemptCount)
	assert.Nil(t, msg.LockExpiry)
	assert.Nil(t, msg.RetryAfter)
	assert.Nil(t, msg.CompletedOn)
	assert.Equal(t, "message.bookingCreated", msg.MessageType)

	decoded, err := Decode[bookingCreated](msg)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestFailBackoff(t *testing.T) {
	tests := []struct {
		attemptCount int
		wantDelay    time.Duration
	}{
		{attemptCount: 0, wantDelay: 1 * time.Second},
		{attemptCount: 1, wantDelay: 2 * time.Second},
		{attemptCount: 2, wantDelay: 4 * time.Second},
		{attemptCount: 5, wantDelay: 32 * time.Second},
	}

	for _, tt := range tests {
		msg := Message{CorrelationID: "corr-1", AttemptCount: tt.attemptCount}

		before := time.Now().UTC()
		msg.Fail()

		require.NotNil(t, msg.RetryAfter)
		require.NotNil(t, msg.LastAttempt)
		assert.Equal(t, tt.attemptCount+1, msg.AttemptCount)
		assert.Nil(t, msg.LockExpiry)
		assert.WithinDuration(t, before.Add(tt.wantDelay), *msg.RetryAfter, 100*time.Millisecond)
	}
}

func TestFailClearsLock(t *testing.T) {
	msg := Message{CorrelationID: "corr-1"}
	msg.Lock(30 * time.Second)
	require.NotNil(t, msg.LockExpiry)

	msg.Fail()
	assert.Nil(t, msg.LockExpiry)
}

func TestLock(t *testing.T) {
	msg := Message{CorrelationID: "corr-1"}

	before := time.Now().UTC()
	msg.Lock(30 * time.Second)

	require.NotNil(t, msg.LockExpiry)
	assert.WithinDuration(t, before.Add(30*time.Second), *msg.LockExpiry, 100*time.Millisecond)
}

func TestComplete(t *testing.T) {
	msg := Message{CorrelationID: "corr-1"}

	msg.Complete()

	require.NotNil(t, msg.CompletedOn)
	assert.WithinDuration(t, time.Now().UTC(), *msg.CompletedOn, 100*time.Millisecond)
}

func TestEligible(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{name: "fresh message", msg: Message{}, want: true},
		{name: "lock expired", msg: Message{LockExpiry: &past}, want: true},
		{name: "locked", msg: Message{LockExpiry: &future}, want: false},
		{name: "backoff elapsed", msg: Message{RetryAfter: &past}, want: true},
		{name: "backing off", msg: Message{RetryAfter: &future}, want: false},
		{name: "completed", msg: Message{CompletedOn: &past}, want: false},
		{name: "locked and backing off", msg: Message{LockExpiry: &future, RetryAfter: &future}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.Eligible(now))
		})
	}
}
