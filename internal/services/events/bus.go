// Package events is the in-process domain event bus. Handlers run
// synchronously in the publisher's goroutine.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/kevin07696/poynt-sync-service/pkg/observability"
	"go.uber.org/zap"
)

// Handler reacts to one published event
type Handler func(ctx context.Context, event domain.Event) error

// Bus fans events out to subscribers registered by event name
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wildcard []Handler
	logger   *zap.Logger
}

var _ ports.EventPublisher = (*Bus)(nil)

// NewBus creates an empty bus
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers h for events named name
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// SubscribeAll registers h for every event
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, h)
}

// Publish delivers event to every matching handler. A failing handler does
// not stop the others; all errors are joined.
func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.Name()])+len(b.wildcard))
	handlers = append(handlers, b.handlers[event.Name()]...)
	handlers = append(handlers, b.wildcard...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := b.call(ctx, h, event); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	observability.RecordEventPublished(event.Name(), err)
	if err != nil {
		b.logger.Warn("Event handler failed",
			zap.String("event", event.Name()),
			zap.Int64("order_id", event.AggregateID()),
			zap.Error(err),
		)
	}
	return err
}

func (b *Bus) call(ctx context.Context, h Handler, event domain.Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler for %s panicked: %v", event.Name(), p)
		}
	}()
	return h(ctx, event)
}
