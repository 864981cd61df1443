package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/bookinglabs/booking-pipeline/internal/dal/interfaces/imessagestore"
	"github.com/bookinglabs/booking-pipeline/internal/dal/rabbitmq"
	"github.com/bookinglabs/booking-pipeline/internal/service/models/message"
	"github.com/bookinglabs/booking-pipeline/internal/service/services/folder"
)

// Consumer receives deliveries from RabbitMQ and records each one in the
// inbox folder. Processing happens later, in the inbox dispatch worker.
type Consumer struct {
	client *rabbitmq.Client
	inbox  *folder.Folder
	queue  amqp.Queue
	stop   chan struct{}
	done   chan struct{}
}

// NewConsumer creates a new Consumer.
func NewConsumer(client *rabbitmq.Client, inbox *folder.Folder) *Consumer {
	queueName := viper.GetString("rabbitmq.queue")
	if queueName == "" {
		panic("rabbitmq.queue is not set in config")
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       queueName,
		Durable:    true,
		AutoDelete: false,
		Exclusive:  false,
		NoWait:     false,
	})
	if err != nil {
		panic(err)
	}

	return &Consumer{
		client: client,
		inbox:  inbox,
		queue:  queue,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Run starts consuming messages from RabbitMQ.
func (c *Consumer) Run(ctx context.Context) error {
	consumerTag := viper.GetString("rabbitmq.consumer_tag")
	if consumerTag == "" {
		consumerTag = "booking-audit-svc"
	}

	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.queue.Name,
		Consumer: consumerTag,
		AutoAck:  false,
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started", "queue", c.queue.Name, "consumer_tag", consumerTag)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(50)

	go func() {
		for {
			select {
			case <-c.stop:
				slog.Info("Stopping consumer")
				close(c.done)

				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("Message channel closed")
					close(c.done)

					return
				}

				g.Go(func() error {
					return c.processDelivery(gctx, msg)
				})
			}
		}
	}()

	<-c.done
	if err := g.Wait(); err != nil {
		slog.Error("Error processing deliveries", "error", err)
	}

	return nil
}

// Stop stops the consumer.
func (c *Consumer) Stop() {
	close(c.stop)
}

// processDelivery persists a single delivery in the inbox. A duplicate
// correlation id means the message is already queued or processed; it is
// acked and dropped.
func (c *Consumer) processDelivery(ctx context.Context, delivery amqp.Delivery) error {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processDelivery")
	defer span.End()

	slog.Info("Received delivery",
		"delivery_tag", delivery.DeliveryTag,
		"correlation_id", delivery.CorrelationId,
	)

	now := time.Now().UTC()
	msg := message.Message{
		CorrelationID: delivery.CorrelationId,
		Payload:       delivery.Body,
		MessageType:   delivery.Type,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := c.inbox.Add(ctx, msg); err != nil {
		if errors.Is(err, imessagestore.ErrDuplicateMessage) {
			slog.Info("Duplicate delivery dropped", "correlation_id", delivery.CorrelationId)

			return delivery.Ack(false)
		}

		slog.Error("Failed to record delivery in inbox",
			"correlation_id", delivery.CorrelationId,
			"error", err,
		)

		// Leave the delivery on the bus; the broker redelivers it.
		return delivery.Nack(false, true)
	}

	return delivery.Ack(false)
}
