package auditapp

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookinglabs/booking-pipeline/internal/config"
	"github.com/bookinglabs/booking-pipeline/internal/dal/postgres"
	"github.com/bookinglabs/booking-pipeline/internal/dal/rabbitmq"
	auditrepo "github.com/bookinglabs/booking-pipeline/internal/dal/repositories/audit/postgres"
	messagerepo "github.com/bookinglabs/booking-pipeline/internal/dal/repositories/messages/postgres"
	"github.com/bookinglabs/booking-pipeline/internal/otel"
	"github.com/bookinglabs/booking-pipeline/internal/service/services/auditsvc"
	"github.com/bookinglabs/booking-pipeline/internal/service/services/folder"
	"github.com/bookinglabs/booking-pipeline/internal/transport/consumer"
	"github.com/bookinglabs/booking-pipeline/internal/worker/dispatch"
	"github.com/bookinglabs/booking-pipeline/internal/worker/purge"
)

// App represents the audit consumer service: a bus consumer writing to the
// inbox, a dispatch worker processing inbox messages into audit logs and a
// purge worker.
type App struct {
	consumer       *consumer.Consumer
	dispatchWorker *dispatch.Worker
	purgeWorker    *purge.Worker
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel("booking-audit-svc")

	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()

	inboxRepo := messagerepo.NewMessageRepository(
		postgresClient.DB(),
		"inbox",
		config.LeaseDuration(),
	)
	// The inbox keeps completed rows for audit until the purge worker
	// reclaims them.
	inbox := folder.New(inboxRepo, folder.MarkCompleted)

	auditSvc := auditsvc.NewAuditService(auditrepo.NewAuditRepository(postgresClient.DB()))

	dispatchWorker := dispatch.NewWorker(
		"inbox",
		inbox,
		auditsvc.NewSink(auditSvc),
		config.DispatchPollInterval(),
		config.DispatchBatchSize(),
	)
	purgeWorker := purge.NewWorker(
		"inbox",
		inboxRepo,
		config.PurgeInterval(),
		config.PurgeMinAge(),
	)

	return &App{
		consumer:       consumer.NewConsumer(rabbitClient, inbox),
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
		slog.Info("Starting consumer")
		if err := a.consumer.Run(workerCtx); err != nil {
			slog.Error("Consumer error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	a.consumer.Stop()
	cancelWorkers()

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
