package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/bookinglabs/booking-pipeline/internal/service/models/booking"
)

// BookingRepository implements the booking repository for PostgreSQL.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{
		db: db,
	}
}

// BulkInsert inserts bookings and returns them with assigned ids.
func (r *BookingRepository) BulkInsert(
	ctx context.Context,
	bookings []booking.Booking,
) ([]booking.Booking, error) {
	if len(bookings) == 0 {
		return bookings, nil
	}

	builder := sq.Insert("bookings").
		Columns(
			"customer_id",
			"destination",
			"start_date",
			"end_date",
			"price_cents",
			"currency",
			"status",
			"created_at",
			"updated_at",
		)
	for _, b := range bookings {
		builder = builder.Values(
			b.CustomerID,
			b.Destination,
			b.StartDate,
			b.EndDate,
			b.PriceCents,
			b.Currency,
			b.Status,
			b.CreatedAt,
			b.UpdatedAt,
		)
	}

	query, args, err := builder.
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert bookings: %w", err)
	}
	defer rows.Close()

	for i := 0; rows.Next(); i++ {
		if err := rows.Scan(&bookings[i].ID); err != nil {
			return nil, fmt.Errorf("failed to scan booking id: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating booking ids: %w", err)
	}

	return bookings, nil
}

// Query retrieves bookings matching the filter.
func (r *BookingRepository) Query(
	ctx context.Context,
	model booking.QueryBookingsModel,
) ([]booking.Booking, error) {
	builder := sq.Select(
		"id",
		"customer_id",
		"destination",
		"start_date",
		"end_date",
		"price_cents",
		"currency",
		"status",
		"created_at",
		"updated_at",
	).
		From("bookings").
		OrderBy("id ASC")

	if len(model.IDs) > 0 {
		builder = builder.Where(sq.Eq{"id": model.IDs})
	}
	if len(model.CustomerIDs) > 0 {
		builder = builder.Where(sq.Eq{"customer_id": model.CustomerIDs})
	}
	if model.Limit > 0 {
		builder = builder.Limit(model.Limit).Offset(model.Offset)
	}

	query, args, err := builder.
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []booking.Booking
	for rows.Next() {
		var b booking.Booking
		err := rows.Scan(
			&b.ID,
			&b.CustomerID,
			&b.Destination,
			&b.StartDate,
			&b.EndDate,
			&b.PriceCents,
			&b.Currency,
			&b.Status,
			&b.CreatedAt,
			&b.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	return bookings, nil
}
