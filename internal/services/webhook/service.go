package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/pkg/observability"
	"go.uber.org/zap"
)

// Delivery outcomes, as reported to metrics and callers
const (
	OutcomeHandled   = "handled"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Receipt describes what happened to one delivery
type Receipt struct {
	DeliveryID string
	EventType  string
	Outcome    string
}

// Service runs a delivery through validate, journal, dispatch and finish
type Service struct {
	dispatcher *Dispatcher
	journal    *Journal
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new webhook intake service
func NewService(dispatcher *Dispatcher, journal *Journal, logger *zap.Logger) *Service {
	return &Service{dispatcher: dispatcher, journal: journal, logger: logger, now: time.Now}
}

// Receive processes one raw delivery. Signature and payload failures are
// returned before anything is journaled.
func (s *Service) Receive(ctx context.Context, payload []byte, signature string) (*Receipt, error) {
	start := s.now()
	event := &domain.WebhookEvent{Payload: payload, Signature: signature, ReceivedAt: start}
	receipt := &Receipt{Outcome: OutcomeRejected}

	if err := s.dispatcher.Validate(ctx, event); err != nil {
		if !IsRejection(err) {
			receipt.Outcome = OutcomeFailed
			s.record(event, receipt, start)
			s.logger.Error("Webhook signature could not be checked", zap.Error(err))
			return receipt, err
		}
		s.record(event, receipt, start)
		s.logger.Warn("Rejected webhook", zap.Error(err))
		return receipt, err
	}
	if err := s.dispatcher.Decode(event); err != nil {
		s.record(event, receipt, start)
		s.logger.Warn("Rejected webhook", zap.Error(err))
		return receipt, err
	}
	receipt.DeliveryID = event.DeliveryID
	receipt.EventType = event.EventType

	duplicate, err := s.journal.Begin(ctx, event)
	if err != nil {
		receipt.Outcome = OutcomeFailed
		s.record(event, receipt, start)
		return receipt, err
	}
	if duplicate {
		receipt.Outcome = OutcomeDuplicate
		s.record(event, receipt, start)
		return receipt, nil
	}

	err = s.dispatch(ctx, event, receipt)
	s.record(event, receipt, start)
	return receipt, err
}

// Replay re-runs a journaled delivery without re-checking its signature,
// which was verified when it was first received.
func (s *Service) Replay(ctx context.Context, deliveryID string) (*Receipt, error) {
	start := s.now()
	stored, err := s.journal.Load(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("delivery %s not journaled", deliveryID)
	}

	event := &domain.WebhookEvent{
		Payload:    stored.Payload,
		Signature:  stored.Signature,
		ReceivedAt: stored.ReceivedAt,
	}
	if err := s.dispatcher.Decode(event); err != nil {
		return nil, err
	}
	event.DeliveryID = stored.DeliveryID

	receipt := &Receipt{DeliveryID: event.DeliveryID, EventType: event.EventType}
	err = s.dispatch(ctx, event, receipt)
	s.record(event, receipt, start)
	return receipt, err
}

func (s *Service) dispatch(ctx context.Context, event *domain.WebhookEvent, receipt *Receipt) error {
	disposition, err := s.dispatcher.HandlePayload(ctx, event)
	if err != nil {
		receipt.Outcome = OutcomeFailed
		s.journal.Finish(ctx, event.DeliveryID, domain.DeliveryStatusFailed, err)
		s.logger.Error("Webhook processing failed",
			zap.String("delivery_id", event.DeliveryID),
			zap.String("event_type", event.EventType),
			zap.String("resource_id", event.ResourceID),
			zap.Error(err),
		)
		return err
	}

	status := domain.DeliveryStatusProcessed
	receipt.Outcome = OutcomeHandled
	if disposition == DispositionIgnored {
		status = domain.DeliveryStatusIgnored
		receipt.Outcome = OutcomeIgnored
	}
	s.journal.Finish(ctx, event.DeliveryID, status, nil)

	s.logger.Info("Webhook processed",
		zap.String("delivery_id", event.DeliveryID),
		zap.String("event_type", event.EventType),
		zap.String("outcome", receipt.Outcome),
	)
	return nil
}

func (s *Service) record(event *domain.WebhookEvent, receipt *Receipt, start time.Time) {
	eventType := event.EventType
	if eventType == "" {
		eventType = "unknown"
	}
	observability.RecordWebhookDelivery(eventType, receipt.Outcome, s.now().Sub(start).Seconds())
}

// IsRejection reports whether err means the delivery itself was bad
func IsRejection(err error) bool {
	return domain.IsWebhookRejection(err) ||
		errors.Is(err, domain.ErrInvalidSignature) ||
		errors.Is(err, domain.ErrInvalidPayload)
}
