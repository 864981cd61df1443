package bookingapp

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookinglabs/booking-pipeline/internal/config"
	"github.com/bookinglabs/booking-pipeline/internal/dal/postgres"
	"github.com/bookinglabs/booking-pipeline/internal/dal/rabbitmq"
	bookingrepo "github.com/bookinglabs/booking-pipeline/internal/dal/repositories/bookings/postgres"
	messagerepo "github.com/bookinglabs/booking-pipeline/internal/dal/repositories/messages/postgres"
	"github.com/bookinglabs/booking-pipeline/internal/otel"
	"github.com/bookinglabs/booking-pipeline/internal/service/services/bookingsvc"
	"github.com/bookinglabs/booking-pipeline/internal/service/services/folder"
	"github.com/bookinglabs/booking-pipeline/internal/transport/publisher"
	httptransport "github.com/bookinglabs/booking-pipeline/internal/transport/http"
	"github.com/bookinglabs/booking-pipeline/internal/worker/dispatch"
	"github.com/bookinglabs/booking-pipeline/internal/worker/purge"
)

// App represents the booking producer service: HTTP API writing to the
// outbox, a dispatch worker delivering to RabbitMQ and a purge worker.
type App struct {
	transport      *httptransport.HTTPTransport
	dispatchWorker *dispatch.Worker
	purgeWorker    *purge.Worker
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel("booking-svc")

	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()

	outboxRepo := messagerepo.NewMessageRepository(
		postgresClient.DB(),
		"outbox",
		config.LeaseDuration(),
	)
	outbox := folder.New(outboxRepo, folder.RemoveOnSuccess)

	bookingSvc := bookingsvc.MustNewBookingService(
		bookingsvc.WithBookingRepository(bookingrepo.NewBookingRepository(postgresClient.DB())),
		bookingsvc.WithOutbox(outbox),
	)

	transport := httptransport.NewHTTPTransport(bookingSvc)
	transport.RegisterRoutes()

	dispatchWorker := dispatch.NewWorker(
		"outbox",
		outbox,
		publisher.MustNewRabbitMQPublisher(rabbitClient),
		config.DispatchPollInterval(),
		config.DispatchBatchSize(),
	)
	purgeWorker := purge.NewWorker(
		"outbox",
		outboxRepo,
		config.PurgeInterval(),
		config.PurgeMinAge(),
	)

	return &App{
		transport:      transport,
		dispatchWorker: dispatchWorker,
		purgeWorker:    purgeWorker,
		postgresClient: postgresClient,
		rabbitClient:   rabbitClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	go a.dispatchWorker.Start(workerCtx)
	go a.purgeWorker.Start(workerCtx)

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	cancelWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	}

	if err := a.postgresClient.Close(); err != nil {
		slog.Error("Database connection close error", "error", err)
	}

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Trace provider shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
