package auditsvc

import (
	"context"
	"time"

	"github.com/bookinglabs/booking-pipeline/internal/dal/interfaces/iauditrepo"
	"github.com/bookinglabs/booking-pipeline/internal/service/models/auditlog"
	"github.com/bookinglabs/booking-pipeline/internal/service/models/booking"
	"github.com/bookinglabs/booking-pipeline/internal/service/models/message"
)

// AuditService persists audit trail entries for booking events consumed from
// the bus.
type AuditService struct {
	auditRepo iauditrepo.IAuditRepository
}

// NewAuditService creates a new AuditService.
func NewAuditService(auditRepo iauditrepo.IAuditRepository) *AuditService {
	return &AuditService{
		auditRepo: auditRepo,
	}
}

// ProcessBookingCreated records an audit log entry for a booking created
// event.
func (s *AuditService) ProcessBookingCreated(
	ctx context.Context,
	correlationID string,
	event booking.CreatedEvent,
) error {
	now := time.Now().UTC()

	return s.auditRepo.Insert(ctx, auditlog.AuditLogBooking{
		BookingID:     event.BookingID,
		CustomerID:    event.CustomerID,
		CorrelationID: correlationID,
		BookingStatus: event.Status,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// Sink adapts the audit service to the dispatch worker's publisher
// capability: delivering an inbox message means processing it.
type Sink struct {
	service *AuditService
}

// NewSink creates a sink over the audit service.
func NewSink(service *AuditService) *Sink {
	return &Sink{
		service: service,
	}
}

// Send decodes the inbox message and processes the booking event.
func (s *Sink) Send(ctx context.Context, msg message.Message) error {
	event, err := message.Decode[booking.CreatedEvent](msg)
	if err != nil {
		return err
	}

	return s.service.ProcessBookingCreated(ctx, msg.CorrelationID, event)
}
