// Package events publishes parking entry and exit events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"parking-attendant/internal/parking"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	TypeEntry = "parking.entry"
	TypeExit  = "parking.exit"
)

// Publisher writes events to one queue on the default exchange.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func NewPublisher(url, queueName string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(queueName, false, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queueName, err)
	}

	return &Publisher{conn: conn, channel: ch, queue: q}, nil
}

func (p *Publisher) PublishEntry(ctx context.Context, event parking.EntryEvent) error {
	msg, err := encodeEvent(TypeEntry, event, time.Now())
	if err != nil {
		return err
	}
	return p.publish(ctx, msg)
}

func (p *Publisher) PublishExit(ctx context.Context, event parking.ExitEvent) error {
	msg, err := encodeEvent(TypeExit, event, time.Now())
	if err != nil {
		return err
	}
	return p.publish(ctx, msg)
}

func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

func (p *Publisher) publish(ctx context.Context, msg amqp.Publishing) error {
	if err := p.channel.PublishWithContext(ctx, "", p.queue.Name, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Type, err)
	}
	return nil
}

func encodeEvent(eventType string, event any, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode %s: %w", eventType, err)
	}

	return amqp.Publishing{
		ContentType: "application/json",
		Type:        eventType,
		MessageId:   uuid.NewString(),
		Timestamp:   now,
		Body:        body,
	}, nil
}
