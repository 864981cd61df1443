package listbookings

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/bookinglabs/booking-pipeline/internal/service/models/booking"
)

// service is an interface for the service layer.
type service interface {
	GetBookings(ctx context.Context, model booking.QueryBookingsModel) ([]booking.Booking, error)
}

// ListBookings handles GET /api/bookings.
func ListBookings(w http.ResponseWriter, r *http.Request, svc service) {
	model := booking.QueryBookingsModel{
		Limit:  20,
		Offset: 0,
	}

	query := r.URL.Query()
	if ids, err := parseInt64List(query.Get("ids")); err == nil {
		model.IDs = ids
	}
	if ids, err := parseInt64List(query.Get("customerIds")); err == nil {
		model.CustomerIDs = ids
	}
	if limit, err := strconv.ParseUint(query.Get("limit"), 10, 64); err == nil && limit > 0 {
		model.Limit = limit
	}
	if offset, err := strconv.ParseUint(query.Get("offset"), 10, 64); err == nil {
		model.Offset = offset
	}

	bookings, err := svc.GetBookings(r.Context(), model)
	if err != nil {
		slog.Error("Failed to list bookings", "error", err)
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"bookings": bookings}); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func parseInt64List(raw string) ([]int64, error) {
	if raw == "" {
		return nil, strconv.ErrSyntax
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}
