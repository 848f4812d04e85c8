package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/salonmarlowe/bookings/pkg/logger"
)

// Subjects published over the bus. Consumers (reminder jobs, analytics) are
// external to this process.
const (
	SubjectRequestCreated     = "salon.request.created"
	SubjectRequestConfirmed   = "salon.request.confirmed"
	SubjectRequestRescheduled = "salon.request.rescheduled"
	SubjectRequestCancelled   = "salon.request.cancelled"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NopPublisher drops every event. Used when NATS is not configured and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
