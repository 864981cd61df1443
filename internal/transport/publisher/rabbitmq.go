package publisher

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"github.com/streadway/amqp"

	"github.com/bookinglabs/booking-pipeline/internal/dal/rabbitmq"
	"github.com/bookinglabs/booking-pipeline/internal/service/models/message"
)

// RabbitMQPublisher delivers messages to a RabbitMQ exchange.
type RabbitMQPublisher struct {
	client       *rabbitmq.Client
	exchangeName string
	routingKey   string
}

// MustNewRabbitMQPublisher creates a publisher and declares the target queue.
func MustNewRabbitMQPublisher(client *rabbitmq.Client) *RabbitMQPublisher {
	queueName := viper.GetString("rabbitmq.queue")
	if queueName == "" {
		panic("rabbitmq.queue is not set in config")
	}

	if _, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       queueName,
		Durable:    true,
		AutoDelete: false,
		Exclusive:  false,
		NoWait:     false,
	}); err != nil {
		panic(err)
	}

	return &RabbitMQPublisher{
		client:       client,
		exchangeName: viper.GetString("rabbitmq.exchange"),
		routingKey:   queueName,
	}
}

// Send publishes the message payload. The correlation id travels in the AMQP
// properties so the consuming side can deduplicate.
func (p *RabbitMQPublisher) Send(_ context.Context, msg message.Message) error {
	err := p.client.Channel().Publish(
		p.exchangeName,
		p.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: msg.CorrelationID,
			Type:          msg.MessageType,
			Body:          msg.Payload,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}
