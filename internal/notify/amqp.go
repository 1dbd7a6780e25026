package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	amqpExchange = "safespot.events"
	amqpQueue    = "hazard_notifications"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPDispatcher publishes notifications to a fanout exchange.
type AMQPDispatcher struct {
	ch amqpChannel
}

// NewAMQPDispatcher opens a channel on conn and declares the exchange, the
// queue and their binding.
func NewAMQPDispatcher(conn *amqp.Connection) (*AMQPDispatcher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(amqpExchange, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(amqpQueue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(amqpQueue, "", amqpExchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &AMQPDispatcher{ch: ch}, nil
}

func (d *AMQPDispatcher) Name() string { return "amqp" }

func (d *AMQPDispatcher) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   n.SentAt,
	}
	if n.Priority == PriorityHigh {
		msg.Priority = 9
	}
	return d.ch.PublishWithContext(ctx, amqpExchange, "", false, false, msg)
}
