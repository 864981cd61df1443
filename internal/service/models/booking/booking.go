package booking

import (
	"time"
)

// Booking represents a travel booking.
type Booking struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customerId"`
	Destination string    `json:"destination"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	PriceCents  int64     `json:"priceCents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreatedEvent is the payload published to the bus when a booking is created.
// The correlation id of the carrying message ties it back to the booking
// operation.
type CreatedEvent struct {
	BookingID   int64     `json:"bookingId"`
	CustomerID  int64     `json:"customerId"`
	Destination string    `json:"destination"`
	PriceCents  int64     `json:"priceCents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// QueryBookingsModel filters booking lookups.
type QueryBookingsModel struct {
	IDs         []int64
	CustomerIDs []int64
	Limit       uint64
	Offset      uint64
}
