package createbooking

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bookinglabs/booking-pipeline/internal/service/models/booking"
)

// service is an interface for the service layer.
type service interface {
	BatchInsert(ctx context.Context, bookings []booking.Booking) ([]booking.Booking, error)
}

// bookingInCreateRequest represents a booking in a create request.
type bookingInCreateRequest struct {
	CustomerID  int64     `json:"customerId"  validate:"gt=0"`
	Destination string    `json:"destination" validate:"required"`
	StartDate   time.Time `json:"startDate"   validate:"required"`
	EndDate     time.Time `json:"endDate"     validate:"required"`
	PriceCents  int64     `json:"priceCents"  validate:"gt=0"`
	Currency    string    `json:"currency"    validate:"required,len=3"`
}

// toModel converts bookingInCreateRequest to booking.Booking.
func (r *bookingInCreateRequest) toModel() booking.Booking {
	return booking.Booking{
		CustomerID:  r.CustomerID,
		Destination: r.Destination,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		PriceCents:  r.PriceCents,
		Currency:    r.Currency,
	}
}

// createBookingRequest represents a create booking request.
type createBookingRequest struct {
	Bookings []bookingInCreateRequest `json:"bookings" validate:"required,min=1,dive"`
}

// Validate validates the create booking request.
func (r *createBookingRequest) Validate() error {
	return validator.New().Struct(r)
}

// BatchInsert handles POST /api/bookings.
func BatchInsert(w http.ResponseWriter, r *http.Request, svc service) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	bookings := make([]booking.Booking, len(req.Bookings))
	for i := range req.Bookings {
		bookings[i] = req.Bookings[i].toModel()
	}

	bookings, err := svc.BatchInsert(r.Context(), bookings)
	if err != nil {
		slog.Error("Failed to create bookings", "error", err)
		http.Error(w, "failed to create bookings", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]any{"bookings": bookings}); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
