package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/kevin07696/poynt-sync-service/pkg/resilience"
	"go.uber.org/zap"
)

// Config contains configuration for the Kafka producer
type Config struct {
	ClientID    string
	Brokers     []string
	MaxAttempts int
}

// NewSaramaConfig builds the producer configuration: acks from all in-sync
// replicas, and successes returned so SendMessage blocks until acked.
func NewSaramaConfig(cfg Config) *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = true
	return sc
}

// Producer implements ports.MessageProducer over a sarama SyncProducer
type Producer struct {
	producer    sarama.SyncProducer
	backoff     resilience.BackoffStrategy
	logger      *zap.Logger
	maxAttempts int
}

var _ ports.MessageProducer = (*Producer)(nil)

// NewProducer dials the brokers and returns a ready producer
func NewProducer(cfg Config, logger *zap.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	sp, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("kafka: create producer: %w", err)
	}
	return NewProducerFrom(sp, cfg.MaxAttempts, logger), nil
}

// NewProducerFrom wraps an existing SyncProducer
func NewProducerFrom(sp sarama.SyncProducer, maxAttempts int, logger *zap.Logger) *Producer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Producer{
		producer:    sp,
		backoff:     resilience.PublishBackoff(),
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// Send publishes one keyed message, retrying with backoff on broker errors
func (p *Producer) Send(ctx context.Context, topic, key string, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Timestamp: time.Now(),
	}

	err := resilience.Retry(ctx, p.backoff, p.maxAttempts, isRetryable, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		partition, offset, err := p.producer.SendMessage(msg)
		if err != nil {
			p.logger.Warn("Kafka send failed",
				zap.String("topic", topic),
				zap.String("key", key),
				zap.Error(err),
			)
			return err
		}
		p.logger.Debug("Kafka message sent",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Int32("partition", partition),
			zap.Int64("offset", offset),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("kafka: send to %s: %w", topic, err)
	}
	return nil
}

// Close flushes and closes the underlying producer
func (p *Producer) Close() error {
	return p.producer.Close()
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// oversized or malformed messages will never succeed
	return !errors.Is(err, sarama.ErrMessageSizeTooLarge) && !errors.Is(err, sarama.ErrInvalidMessage)
}
