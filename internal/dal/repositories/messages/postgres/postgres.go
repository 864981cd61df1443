package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bookinglabs/booking-pipeline/internal/dal/interfaces/imessagestore"
	"github.com/bookinglabs/booking-pipeline/internal/service/models/message"
)

var columns = []string{
	"id",
	"correlation_id",
	"payload",
	"message_type",
	"attempt_count",
	"last_attempt",
	"lock_expiry",
	"retry_after",
	"completed_on",
	"created_at",
	"updated_at",
}

// MessageRepository implements the message folder store for PostgreSQL. The
// same implementation backs both the outbox and the inbox; the table name
// selects the folder.
type MessageRepository struct {
	db    *sqlx.DB
	table string
	lease time.Duration
}

// NewMessageRepository creates a new message repository over the given folder
// table.
func NewMessageRepository(db *sqlx.DB, table string, lease time.Duration) *MessageRepository {
	if lease <= 0 {
		lease = message.DefaultLease
	}

	return &MessageRepository{
		db:    db,
		table: table,
		lease: lease,
	}
}

// Add inserts a new message row. A unique-violation on the correlation id
// (one non-completed row per id) is translated to ErrDuplicateMessage.
func (r *MessageRepository) Add(ctx context.Context, msg message.Message) error {
	query, args, err := sq.Insert(r.table).
		Columns(
			"correlation_id",
			"payload",
			"message_type",
			"attempt_count",
			"last_attempt",
			"lock_expiry",
			"retry_after",
			"completed_on",
			"created_at",
			"updated_at",
		).
		Values(
			msg.CorrelationID,
			msg.Payload,
			msg.MessageType,
			msg.AttemptCount,
			msg.LastAttempt,
			msg.LockExpiry,
			msg.RetryAfter,
			msg.CompletedOn,
			msg.CreatedAt,
			msg.UpdatedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return imessagestore.ErrDuplicateMessage
		}

		return storageErr("failed to insert message", err)
	}

	return nil
}

// Update overwrites the bookkeeping fields of each message, matched by
// correlation id. Rows already removed by a concurrent purge or complete are
// skipped silently.
func (r *MessageRepository) Update(ctx context.Context, msgs []message.Message) error {
	for _, msg := range msgs {
		query, args, err := sq.Update(r.table).
			Set("attempt_count", msg.AttemptCount).
			Set("last_attempt", msg.LastAttempt).
			Set("lock_expiry", msg.LockExpiry).
			Set("retry_after", msg.RetryAfter).
			Set("completed_on", msg.CompletedOn).
			Set("updated_at", time.Now().UTC()).
			Where(sq.Eq{"correlation_id": msg.CorrelationID}).
			Where(sq.Eq{"completed_on": nil}).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build update query: %w", err)
		}

		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return storageErr("failed to update message", err)
		}
	}

	return nil
}

// GetAll retrieves every eligible message without leasing it.
func (r *MessageRepository) GetAll(ctx context.Context) ([]message.Message, error) {
	now := time.Now().UTC()

	query, args, err := eligibleQuery(r.table, now).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("failed to query messages", err)
	}

	return scanMessages(rows)
}

// GetAndLock atomically claims up to count eligible messages, oldest-due
// first. The selected rows are locked with FOR UPDATE SKIP LOCKED and stamped
// with a fresh lease inside one transaction, so concurrent callers never
// receive overlapping rows.
func (r *MessageRepository) GetAndLock(ctx context.Context, count int) ([]message.Message, error) {
	now := time.Now().UTC()

	query, args, err := eligibleQuery(r.table, now).
		Limit(uint64(count)).
		Suffix("FOR UPDATE SKIP LOCKED").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storageErr("failed to begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("failed to query messages", err)
	}

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	if len(messages) == 0 {
		return nil, tx.Commit()
	}

	expiry := now.Add(r.lease)
	ids := make([]int64, 0, len(messages))
	for i := range messages {
		messages[i].LockExpiry = &expiry
		messages[i].UpdatedAt = now
		ids = append(ids, messages[i].ID)
	}

	updateQuery, updateArgs, err := sq.Update(r.table).
		Set("lock_expiry", expiry).
		Set("updated_at", now).
		Where(sq.Eq{"id": ids}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build lock query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, updateQuery, updateArgs...); err != nil {
		return nil, storageErr("failed to lock messages", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("failed to commit lock transaction", err)
	}

	return messages, nil
}

// Remove hard-deletes the rows with the given correlation ids.
func (r *MessageRepository) Remove(ctx context.Context, correlationIDs []string) error {
	if len(correlationIDs) == 0 {
		return nil
	}

	query, args, err := sq.Delete(r.table).
		Where(sq.Eq{"correlation_id": correlationIDs}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return storageErr("failed to delete messages", err)
	}

	return nil
}

// RemoveAged hard-deletes completed rows whose CompletedOn is older than
// now - minAge. Rows never completed are left untouched.
func (r *MessageRepository) RemoveAged(ctx context.Context, minAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-minAge)

	query, args, err := sq.Delete(r.table).
		Where(sq.NotEq{"completed_on": nil}).
		Where(sq.Lt{"completed_on": cutoff}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build purge query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return storageErr("failed to purge aged messages", err)
	}

	return nil
}

// eligibleQuery selects pending rows whose lock lease and retry backoff have
// both elapsed, most overdue first. NULL retry_after sorts first: a message
// that never failed is due immediately.
func eligibleQuery(table string, now time.Time) sq.SelectBuilder {
	return sq.Select(columns...).
		From(table).
		Where(sq.Eq{"completed_on": nil}).
		Where(sq.Or{sq.Eq{"lock_expiry": nil}, sq.Lt{"lock_expiry": now}}).
		Where(sq.Or{sq.Eq{"retry_after": nil}, sq.Lt{"retry_after": now}}).
		OrderBy("retry_after ASC NULLS FIRST", "id ASC")
}

func scanMessages(rows *sql.Rows) ([]message.Message, error) {
	defer rows.Close()

	var messages []message.Message
	for rows.Next() {
		var msg message.Message
		err := rows.Scan(
			&msg.ID,
			&msg.CorrelationID,
			&msg.Payload,
			&msg.MessageType,
			&msg.AttemptCount,
			&msg.LastAttempt,
			&msg.LockExpiry,
			&msg.RetryAfter,
			&msg.CompletedOn,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		)
		if err != nil {
			return nil, storageErr("failed to scan message", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("error iterating messages", err)
	}

	return messages, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func storageErr(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, imessagestore.ErrStorage, err)
}
