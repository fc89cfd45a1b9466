package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oneroskilfu/ireva-app-sub001/internal/core/events"
)

// Message is the envelope sent to downstream notification consumers.
type Message struct {
	EventID    string      `json:"event_id"`
	EventType  string      `json:"event_type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Publisher delivers one message under a partition key.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, msg Message) error
	Close() error
}

// Notifier forwards payment and refund events from the in-process bus. It is
// subscribed asynchronously, so a failing sink never affects the transaction
// that raised the event.
type Notifier struct {
	publisher   Publisher
	topicPrefix string
	logger      *slog.Logger
}

func NewNotifier(publisher Publisher, topicPrefix string, logger *slog.Logger) *Notifier {
	return &Notifier{publisher: publisher, topicPrefix: topicPrefix, logger: logger}
}

func (n *Notifier) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypePaymentConfirmed, n.Handle)
	bus.Subscribe(events.EventTypeRefundIssued, n.Handle)
}

func (n *Notifier) Handle(ctx context.Context, event events.Event) error {
	msg := Message{
		EventID:    event.EventID(),
		EventType:  event.EventType(),
		OccurredAt: event.OccurredAt(),
		Data:       event.Payload(),
	}

	topic := n.topicPrefix + event.EventType()
	key := partitionKey(event)

	if err := n.publisher.Publish(ctx, topic, key, msg); err != nil {
		n.logger.Error("failed to deliver notification",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"topic", topic,
			"error", err)
		return fmt.Errorf("publish %s: %w", event.EventType(), err)
	}

	n.logger.Debug("notification delivered", "event_type", event.EventType(), "event_id", event.EventID(), "topic", topic)
	return nil
}

// partitionKey keeps every event of one payment on the same partition.
func partitionKey(event events.Event) string {
	switch e := event.(type) {
	case *events.PaymentConfirmedEvent:
		return e.PaymentID
	case *events.RefundIssuedEvent:
		return e.PaymentID
	}
	return event.EventID()
}

// LogPublisher is the sink used when Kafka is disabled.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, topic, key string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	p.logger.Info("notification", "topic", topic, "key", key, "message", string(data))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
