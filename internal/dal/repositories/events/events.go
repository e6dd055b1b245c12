package events

import (
	"github.com/spf13/viper"
	"github.com/streadway/amqp"

	"github.com/velouria/commerce/internal/dal/rabbitmq"
)

// OrderEventPublisher publishes order lifecycle events to RabbitMQ. The
// queue is declared up front so outbox deliveries routed through the
// default exchange always have a destination.
type OrderEventPublisher struct {
	client *rabbitmq.Client
	queue  amqp.Queue
}

// NewOrderEventPublisher declares the order events queue and returns a
// publisher bound to it.
func NewOrderEventPublisher(client *rabbitmq.Client) *OrderEventPublisher {
	queueName := viper.GetString("rabbitmq.order_created_queue")
	if queueName == "" {
		queueName = "commerce.order.created"
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       queueName,
		Durable:    true,
		Exclusive:  false,
		AutoDelete: false,
	})
	if err != nil {
		panic(err)
	}

	return &OrderEventPublisher{
		client: client,
		queue:  queue,
	}
}

// QueueName returns the declared queue, used as the routing key for outbox
// rows published through the default exchange.
func (p *OrderEventPublisher) QueueName() string {
	return p.queue.Name
}

// Publish sends one message. Satisfies the outbox worker's publisher
// contract.
func (p *OrderEventPublisher) Publish(exchange, routingKey, contentType string, body []byte) error {
	return p.client.Publish(exchange, routingKey, contentType, body)
}
