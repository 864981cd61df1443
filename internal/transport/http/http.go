package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/bookinglabs/booking-pipeline/internal/service/models/booking"
	createbooking "github.com/bookinglabs/booking-pipeline/internal/transport/http/create_booking"
	listbookings "github.com/bookinglabs/booking-pipeline/internal/transport/http/list_bookings"
	"github.com/bookinglabs/booking-pipeline/pkg/http/middleware/trace"
	"github.com/bookinglabs/booking-pipeline/pkg/logger"
)

type service interface {
	GetBookings(ctx context.Context, model booking.QueryBookingsModel) ([]booking.Booking, error)
	BatchInsert(ctx context.Context, bookings []booking.Booking) ([]booking.Booking, error)
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	service service
}

func NewHTTPTransport(service service) *HTTPTransport {
	router := newRouter()
	server := newServer(router)

	return &HTTPTransport{
		server:  server,
		router:  router,
		service: service,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Get("/bookings", h.listBookings)
		r.Post("/bookings", h.batchInsert)
	})
}

func (h *HTTPTransport) batchInsert(w http.ResponseWriter, r *http.Request) {
	createbooking.BatchInsert(w, r, h.service)
}

func (h *HTTPTransport) listBookings(w http.ResponseWriter, r *http.Request) {
	listbookings.ListBookings(w, r, h.service)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(trace.NewTraceMiddleware)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
