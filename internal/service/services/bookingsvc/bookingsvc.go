package bookingsvc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bookinglabs/booking-pipeline/internal/dal/interfaces/ibookingrepo"
	"github.com/bookinglabs/booking-pipeline/internal/dal/interfaces/imessagestore"
	"github.com/bookinglabs/booking-pipeline/internal/service/models/booking"
	"github.com/bookinglabs/booking-pipeline/internal/service/models/message"
	"github.com/bookinglabs/booking-pipeline/internal/service/services/folder"
)

// BookingService is a service for managing bookings. Every created booking
// queues a CreatedEvent in the outbox folder for delivery to the bus.
type BookingService struct {
	bookingRepo ibookingrepo.IBookingRepository
	outbox      *folder.Folder
}

// option is a function that configures the BookingService.
type option func(*BookingService)

// MustNewBookingService creates a new BookingService.
func MustNewBookingService(opts ...option) *BookingService {
	s := &BookingService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.bookingRepo == nil || s.outbox == nil {
		panic("booking service requires a booking repository and an outbox folder")
	}

	return s
}

// WithBookingRepository sets the booking repository for the BookingService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithBookingRepository(repo ibookingrepo.IBookingRepository) option {
	return func(s *BookingService) {
		s.bookingRepo = repo
	}
}

// WithOutbox sets the outbox folder for the BookingService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOutbox(outbox *folder.Folder) option {
	return func(s *BookingService) {
		s.outbox = outbox
	}
}

// BatchInsert creates bookings and queues a created event per booking.
func (s *BookingService) BatchInsert(
	ctx context.Context,
	bookings []booking.Booking,
) ([]booking.Booking, error) {
	now := time.Now().UTC()
	for i := range bookings {
		bookings[i].Status = "created"
		bookings[i].CreatedAt = now
		bookings[i].UpdatedAt = now
	}

	bookings, err := s.bookingRepo.BulkInsert(ctx, bookings)
	if err != nil {
		return nil, err
	}

	for _, b := range bookings {
		event := booking.CreatedEvent{
			BookingID:   b.ID,
			CustomerID:  b.CustomerID,
			Destination: b.Destination,
			PriceCents:  b.PriceCents,
			Currency:    b.Currency,
			Status:      b.Status,
			CreatedAt:   b.CreatedAt,
		}

		msg, err := message.New(uuid.NewString(), event)
		if err != nil {
			return nil, err
		}

		if err := s.outbox.Add(ctx, msg); err != nil {
			if errors.Is(err, imessagestore.ErrDuplicateMessage) {
				// Already queued for this operation, nothing to do.
				slog.Warn("Booking event already queued",
					"booking_id", b.ID,
					"correlation_id", msg.CorrelationID,
				)

				continue
			}

			return nil, err
		}
	}

	return bookings, nil
}

// GetBookings retrieves bookings matching the filter.
func (s *BookingService) GetBookings(
	ctx context.Context,
	model booking.QueryBookingsModel,
) ([]booking.Booking, error) {
	return s.bookingRepo.Query(ctx, model)
}
