package events

import (
	"context"
	"errors"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
)

// Batch collects events raised inside a database transaction so they can be
// published once the transaction has committed.
type Batch struct {
	events []domain.Event
}

// Add queues an event
func (b *Batch) Add(event domain.Event) {
	b.events = append(b.events, event)
}

// Append moves every event queued on other to the end of b
func (b *Batch) Append(other *Batch) {
	b.events = append(b.events, other.events...)
	other.Reset()
}

// Events returns the queued events in order
func (b *Batch) Events() []domain.Event {
	return b.events
}

// Len is the number of queued events
func (b *Batch) Len() int {
	return len(b.events)
}

// Reset drops everything queued, e.g. after a rollback
func (b *Batch) Reset() {
	b.events = b.events[:0]
}

// Flush publishes the queued events in order and empties the batch.
// Every event is published even when an earlier one fails.
func (b *Batch) Flush(ctx context.Context, publisher ports.EventPublisher) error {
	var errs []error
	for _, e := range b.events {
		if err := publisher.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	b.Reset()
	return errors.Join(errs...)
}
