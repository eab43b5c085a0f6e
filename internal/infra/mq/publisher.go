// Package mq publishes notification outcomes to a RabbitMQ topic exchange.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"course_followup_service/internal/domain/notification"
)

// OutcomeEvent is the message body published for every settled dispatch.
type OutcomeEvent struct {
	EventID    string               `json:"eventId"`
	OccurredAt time.Time            `json:"occurredAt"`
	Outcome    notification.Outcome `json:"outcome"`
}

// RoutingKey is "notification.<status>", e.g. notification.failed.
func RoutingKey(o notification.Outcome) string {
	return "notification." + string(o.Status)
}

// NewOutcomeEvent wraps an outcome with an id and timestamp.
func NewOutcomeEvent(o notification.Outcome, at time.Time) OutcomeEvent {
	return OutcomeEvent{EventID: uuid.NewString(), OccurredAt: at.UTC(), Outcome: o}
}

type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// PublishOutcome implements app.OutcomePublisher.
func (p *Publisher) PublishOutcome(ctx context.Context, o notification.Outcome) error {
	event := NewOutcomeEvent(o, time.Now())
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode outcome event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(o), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID,
		Timestamp:    event.OccurredAt,
		Body:         b,
	})
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
