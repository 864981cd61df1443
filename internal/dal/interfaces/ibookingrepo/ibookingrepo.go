package ibookingrepo

import (
	"context"

	"github.com/bookinglabs/booking-pipeline/internal/service/models/booking"
)

// IBookingRepository defines the interface for booking persistence.
type IBookingRepository interface {
	// BulkInsert inserts bookings and returns them with assigned ids.
	BulkInsert(ctx context.Context, bookings []booking.Booking) ([]booking.Booking, error)

	// Query retrieves bookings matching the filter.
	Query(ctx context.Context, model booking.QueryBookingsModel) ([]booking.Booking, error)
}
