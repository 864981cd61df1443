package iauditrepo

import (
	"context"

	"github.com/bookinglabs/booking-pipeline/internal/service/models/auditlog"
)

// IAuditRepository defines the interface for audit log persistence.
type IAuditRepository interface {
	// Insert adds a new audit log entry.
	Insert(ctx context.Context, log auditlog.AuditLogBooking) error
}
