package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ttran/storefront-api/internal/usecase"
)

const (
	exchangeName = "notification.events"
	routingKey   = "notification.order_confirmed"
	queueName    = "notification.order.q"
)

// RabbitNotifier is the Notification Sink: order confirmations are published
// fire-and-forget; the consumer side persists and delivers them. A broker
// outage never blocks or rolls back a settlement.
type RabbitNotifier struct {
	ch *amqp.Channel
}

// NewRabbitNotifier sets up the exchange, queue, and binding once at startup.
func NewRabbitNotifier(ch *amqp.Channel) (*RabbitNotifier, error) {
	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("queue bind: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &RabbitNotifier{ch: ch}, nil
}

// OrderConfirmed publishes the confirmation event.
func (p *RabbitNotifier) OrderConfirmed(ctx context.Context, userID, orderID string) error {
	body, err := json.Marshal(usecase.OrderConfirmedMsg{UserID: userID, OrderID: orderID})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

var _ usecase.NotificationSink = (*RabbitNotifier)(nil)
