package ports

import (
	"context"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
)

// EventPublisher publishes domain events to in-process subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// MessageProducer sends a keyed message to an external broker topic.
type MessageProducer interface {
	Send(ctx context.Context, topic, key string, value []byte) error
	Close() error
}
