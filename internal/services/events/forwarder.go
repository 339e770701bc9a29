package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/kevin07696/poynt-sync-service/pkg/encoding"
	"go.uber.org/zap"
)

// Envelope is the broker message written for every domain event
type Envelope struct {
	OccurredAt time.Time    `json:"occurred_at"`
	Event      string       `json:"event"`
	Payload    domain.Event `json:"payload"`
	OrderID    int64        `json:"order_id"`
}

// Forwarder copies domain events to a broker topic, keyed by order id so
// all events of one order land on the same partition.
type Forwarder struct {
	producer ports.MessageProducer
	topic    string
	logger   *zap.Logger
	now      func() time.Time
}

// NewForwarder creates a forwarder writing to topic
func NewForwarder(producer ports.MessageProducer, topic string, logger *zap.Logger) *Forwarder {
	return &Forwarder{producer: producer, topic: topic, logger: logger, now: time.Now}
}

// Handle is a bus Handler
func (f *Forwarder) Handle(ctx context.Context, event domain.Event) error {
	value, err := encoding.Marshal(Envelope{
		OccurredAt: f.now().UTC(),
		Event:      event.Name(),
		Payload:    event,
		OrderID:    event.AggregateID(),
	})
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", event.Name(), err)
	}

	key := strconv.FormatInt(event.AggregateID(), 10)
	if err := f.producer.Send(ctx, f.topic, key, value); err != nil {
		return fmt.Errorf("forward %s for order %s: %w", event.Name(), key, err)
	}

	f.logger.Debug("Forwarded event",
		zap.String("event", event.Name()),
		zap.String("topic", f.topic),
		zap.String("key", key),
	)
	return nil
}

// Register subscribes the forwarder to every event on bus
func (f *Forwarder) Register(bus *Bus) {
	bus.SubscribeAll(f.Handle)
}
