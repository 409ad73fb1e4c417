// Package amqp hands booking notifications to the email/webhook workers over RabbitMQ.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"staydesk/internal/app/policies"
)

const DefaultQueue = "booking.notifications"

// Channel is the subset of *amqp.Channel the notifier uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Notifier publishes one persistent message per booking transition. A broken
// channel is reopened once per publish.
type Notifier struct {
	mu    sync.Mutex
	open  func() (Channel, error)
	ch    Channel
	conn  *amqp.Connection
	queue string
}

// Dial connects to url and declares the durable notification queue.
func Dial(url, queue string) (*Notifier, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial: %w", err)
	}
	open := func() (Channel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, err
		}
		return ch, nil
	}
	n := NewNotifier(queue, open)
	n.conn = conn
	return n, nil
}

func NewNotifier(queue string, open func() (Channel, error)) *Notifier {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Notifier{open: open, queue: queue}
}

func (n *Notifier) NotifyBooking(ctx context.Context, note policies.BookingNotification) error {
	body, err := json.Marshal(note)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    note.BookingID + ":" + note.Status,
		Type:         "booking." + note.Status,
		Body:         body,
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		ch, err := n.channel()
		if err != nil {
			lastErr = err
			continue
		}
		if err := ch.PublishWithContext(ctx, "", n.queue, false, false, msg); err != nil {
			lastErr = err
			_ = ch.Close()
			n.ch = nil
			continue
		}
		return nil
	}
	return fmt.Errorf("amqp: publish %s: %w", n.queue, lastErr)
}

func (n *Notifier) channel() (Channel, error) {
	if n.ch != nil {
		return n.ch, nil
	}
	if n.open == nil {
		return nil, errors.New("amqp: notifier has no channel factory")
	}
	ch, err := n.open()
	if err != nil {
		return nil, err
	}
	n.ch = ch
	return ch, nil
}

func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		_ = n.ch.Close()
		n.ch = nil
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

var _ policies.Notifier = (*Notifier)(nil)
