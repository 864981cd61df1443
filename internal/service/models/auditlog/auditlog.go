package auditlog

import (
	"time"
)

// AuditLogBooking is one audit trail entry for a booking event consumed from
// the bus.
type AuditLogBooking struct {
	ID            int64
	BookingID     int64
	CustomerID    int64
	CorrelationID string
	BookingStatus string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
