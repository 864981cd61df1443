package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookinglabs/booking-pipeline/internal/dal/interfaces/imessagestore"
	"github.com/bookinglabs/booking-pipeline/internal/service/models/message"
)

func newMockRepository(t *testing.T) (*MessageRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewMessageRepository(sqlx.NewDb(db, "sqlmock"), "outbox", 30*time.Second)

	return repo, mock
}

func messageRows(msgs ...message.Message) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "correlation_id", "payload", "message_type", "attempt_count",
		"last_attempt", "lock_expiry", "retry_after", "completed_on",
		"created_at", "updated_at",
	})
	for _, msg := range msgs {
		rows.AddRow(
			msg.ID, msg.CorrelationID, msg.Payload, msg.MessageType, msg.AttemptCount,
			msg.LastAttempt, msg.LockExpiry, msg.RetryAfter, msg.CompletedOn,
			msg.CreatedAt, msg.UpdatedAt,
		)
	}

	return rows
}

func TestAdd(t *testing.T) {
	repo, mock := newMockRepository(t)

	msg, err := message.New("corr-1", map[string]string{"bookingId": "42"})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO outbox (correlation_id,payload,message_type,attempt_count,last_attempt,lock_expiry,retry_after,completed_on,created_at,updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)",
	)).WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Add(context.Background(), msg)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddDuplicateCorrelationID(t *testing.T) {
	repo, mock := newMockRepository(t)

	msg, err := message.New("corr-1", map[string]string{"bookingId": "42"})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO outbox").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "outbox_correlation_id_pending_key"})

	err = repo.Add(context.Background(), msg)
	assert.ErrorIs(t, err, imessagestore.ErrDuplicateMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddStorageError(t *testing.T) {
	repo, mock := newMockRepository(t)

	msg, err := message.New("corr-1", map[string]string{"bookingId": "42"})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO outbox").
		WillReturnError(errors.New("connection refused"))

	err = repo.Add(context.Background(), msg)
	assert.ErrorIs(t, err, imessagestore.ErrStorage)
	assert.NotErrorIs(t, err, imessagestore.ErrDuplicateMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	repo, mock := newMockRepository(t)

	msg := message.Message{CorrelationID: "corr-1", AttemptCount: 2}

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE outbox SET attempt_count = $1, last_attempt = $2, lock_expiry = $3, retry_after = $4, completed_on = $5, updated_at = $6 WHERE correlation_id = $7 AND completed_on IS NULL",
	)).WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), []message.Message{msg})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingRowIsNotAnError(t *testing.T) {
	repo, mock := newMockRepository(t)

	// Row already removed by a concurrent purge: zero rows affected.
	mock.ExpectExec("UPDATE outbox SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), []message.Message{{CorrelationID: "gone"}})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAll(t *testing.T) {
	repo, mock := newMockRepository(t)

	now := time.Now().UTC()
	stored := message.Message{
		ID:            1,
		CorrelationID: "corr-1",
		Payload:       []byte(`{"bookingId":42}`),
		MessageType:   "booking.Created",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, correlation_id, payload, message_type, attempt_count, last_attempt, lock_expiry, retry_after, completed_on, created_at, updated_at FROM outbox WHERE completed_on IS NULL AND (lock_expiry IS NULL OR lock_expiry < $1) AND (retry_after IS NULL OR retry_after < $2) ORDER BY retry_after ASC NULLS FIRST, id ASC",
	)).WillReturnRows(messageRows(stored))

	messages, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "corr-1", messages[0].CorrelationID)
	assert.JSONEq(t, `{"bookingId":42}`, string(messages[0].Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAndLock(t *testing.T) {
	repo, mock := newMockRepository(t)

	now := time.Now().UTC()
	stored := message.Message{
		ID:            7,
		CorrelationID: "corr-1",
		Payload:       []byte(`{}`),
		MessageType:   "booking.Created",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WillReturnRows(messageRows(stored))
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE outbox SET lock_expiry = $1, updated_at = $2 WHERE id IN ($3)",
	)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	messages, err := repo.GetAndLock(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	// Returned copies carry the fresh lease.
	require.NotNil(t, messages[0].LockExpiry)
	assert.WithinDuration(t, time.Now().UTC().Add(30*time.Second), *messages[0].LockExpiry, time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAndLockEmpty(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").WillReturnRows(messageRows())
	mock.ExpectCommit()

	messages, err := repo.GetAndLock(context.Background(), 4)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemove(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"DELETE FROM outbox WHERE correlation_id IN ($1,$2)",
	)).WithArgs("corr-1", "corr-2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.Remove(context.Background(), []string{"corr-1", "corr-2"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveNothing(t *testing.T) {
	repo, mock := newMockRepository(t)

	err := repo.Remove(context.Background(), nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveAged(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"DELETE FROM outbox WHERE completed_on IS NOT NULL AND completed_on < $1",
	)).WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.RemoveAged(context.Background(), 10*time.Minute)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
