// Package mocks provides shared testify mocks for the remote and publishing ports.
package mocks

import (
	"context"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockPoyntGateway mocks ports.PoyntGateway
type MockPoyntGateway struct {
	mock.Mock
}

var _ ports.PoyntGateway = (*MockPoyntGateway)(nil)

func (m *MockPoyntGateway) GetTransaction(ctx context.Context, id string) (*ports.RemoteTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteTransaction), args.Error(1)
}

func (m *MockPoyntGateway) RefundTransaction(ctx context.Context, req *ports.RefundRequest) (*ports.RemoteTransaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteTransaction), args.Error(1)
}

func (m *MockPoyntGateway) VoidTransaction(ctx context.Context, id string) (*ports.RemoteTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteTransaction), args.Error(1)
}

func (m *MockPoyntGateway) GetOrder(ctx context.Context, id string) (*ports.RemoteOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteOrder), args.Error(1)
}

func (m *MockPoyntGateway) CompleteOrder(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPoyntGateway) ForceCompleteOrder(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPoyntGateway) CancelOrder(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockMessageProducer mocks ports.MessageProducer
type MockMessageProducer struct {
	mock.Mock
}

var _ ports.MessageProducer = (*MockMessageProducer)(nil)

func (m *MockMessageProducer) Send(ctx context.Context, topic, key string, value []byte) error {
	return m.Called(ctx, topic, key, value).Error(0)
}

func (m *MockMessageProducer) Close() error {
	return m.Called().Error(0)
}

// EventRecorder is a ports.EventPublisher that keeps every published event
type EventRecorder struct {
	Events []domain.Event
	Err    error
}

var _ ports.EventPublisher = (*EventRecorder)(nil)

func (r *EventRecorder) Publish(_ context.Context, event domain.Event) error {
	r.Events = append(r.Events, event)
	return r.Err
}

// Names returns the names of the recorded events in order
func (r *EventRecorder) Names() []string {
	names := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		names = append(names, e.Name())
	}
	return names
}

// Count returns how many recorded events carry name
func (r *EventRecorder) Count(name string) int {
	n := 0
	for _, e := range r.Events {
		if e.Name() == name {
			n++
		}
	}
	return n
}
