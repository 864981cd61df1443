package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/bookinglabs/booking-pipeline/internal/service/models/auditlog"
)

// AuditRepository implements the audit log repository for PostgreSQL.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new audit log repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{
		db: db,
	}
}

// Insert adds a new audit log entry.
func (r *AuditRepository) Insert(ctx context.Context, log auditlog.AuditLogBooking) error {
	query, args, err := sq.Insert("audit_logs").
		Columns(
			"booking_id",
			"customer_id",
			"correlation_id",
			"booking_status",
			"created_at",
			"updated_at",
		).
		Values(
			log.BookingID,
			log.CustomerID,
			log.CorrelationID,
			log.BookingStatus,
			log.CreatedAt,
			log.UpdatedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}
