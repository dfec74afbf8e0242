// Package queue forwards domain events from the in-process bus to a
// durable RabbitMQ queue.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"baz-car-admin/internal/event"
)

const publishTimeout = 5 * time.Second

// Channel is the part of *amqp.Channel the forwarder needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange string, key string, mandatory bool, immediate bool, msg amqp.Publishing) error
}

type Forwarder struct {
	ch    Channel
	queue string
	close func() error
}

// Dial connects to the broker and declares queue as durable.
func Dial(url string, queue string) (*Forwarder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}

	f := NewForwarder(ch, queue)
	f.close = func() error {
		return errors.Join(ch.Close(), conn.Close())
	}
	return f, nil
}

func NewForwarder(ch Channel, queue string) *Forwarder {
	return &Forwarder{ch: ch, queue: queue, close: func() error { return nil }}
}

// Forward publishes e as a persistent JSON message on the default exchange.
func (f *Forwarder) Forward(ctx context.Context, e event.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Type:         string(e.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := f.ch.PublishWithContext(ctx, "", f.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// Run forwards every bus event until ctx is done. Failures are logged and
// the event is dropped.
func (f *Forwarder) Run(ctx context.Context, bus event.Bus) {
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}

			publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
			err := f.Forward(publishCtx, e)
			cancel()
			if err != nil {
				slog.Warn("event forward failed", "event_id", e.ID, "type", e.Type, "error", err)
			}
		}
	}
}

func (f *Forwarder) Close() error {
	return f.close()
}
