package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/medcv-review/pkg/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
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
	ID        string
}

// Decode unmarshals the JSON payload into v.
func (m *Message) Decode(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s event: %w", m.Subject, err)
	}
	return nil
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url, nats.Name("medcv-review"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "bytes", len(payload))

	return n.conn.Publish(subject, payload)
}

func wrap(msg *nats.Msg) *Message {
	return &Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Timestamp: time.Now(),
		ID:        uuid.NewString(),
	}
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) { handler(wrap(msg)) })
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) { handler(wrap(msg)) })
	return err
}

func (n *NATSEventBus) Close() error {
	return n.conn.Drain()
}

// Event subjects
const (
	UserSignedUp = "user.signed_up"
	CVSubmitted  = "cv.submitted"
	CVDelivered  = "cv.delivered"
	ReviewPosted = "review.posted"
)

type UserSignedUpEvent struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type CVSubmittedEvent struct {
	CVID         string    `json:"cv_id"`
	UserID       string    `json:"user_id"`
	ServiceLevel string    `json:"service_level"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

type CVDeliveredEvent struct {
	CVID        string    `json:"cv_id"`
	UserID      string    `json:"user_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type ReviewPostedEvent struct {
	ReviewID   string    `json:"review_id"`
	CVID       string    `json:"cv_id"`
	UserID     string    `json:"user_id"`
	ReviewerID string    `json:"reviewer_id"`
	PostedAt   time.Time `json:"posted_at"`
}
