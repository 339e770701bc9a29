package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff_NextDelay(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   100 * time.Millisecond,
		Multiplier: 2,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: -1, want: 10 * time.Millisecond},
		{attempt: 0, want: 10 * time.Millisecond},
		{attempt: 1, want: 20 * time.Millisecond},
		{attempt: 3, want: 80 * time.Millisecond},
		{attempt: 4, want: 100 * time.Millisecond},
		{attempt: 30, want: 100 * time.Millisecond},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestPublishBackoff_StaysWithinJitter(t *testing.T) {
	backoff := PublishBackoff()

	for attempt := 0; attempt < 8; attempt++ {
		nominal := float64(backoff.BaseDelay) * float64(int64(1)<<attempt)
		if nominal > float64(backoff.MaxDelay) {
			nominal = float64(backoff.MaxDelay)
		}
		for i := 0; i < 50; i++ {
			d := float64(backoff.NextDelay(attempt))
			assert.GreaterOrEqual(t, d, nominal*0.89)
			assert.LessOrEqual(t, d, nominal*1.11)
		}
	}
}

type fixedDelay time.Duration

func (f fixedDelay) NextDelay(int) time.Duration { return time.Duration(f) }

func TestRetry(t *testing.T) {
	errTransient := errors.New("broker unavailable")
	errFatal := errors.New("message too large")
	retryable := func(err error) bool { return errors.Is(err, errTransient) }

	t.Run("succeeds_after_transient_failures", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), fixedDelay(time.Millisecond), 3, retryable, func(context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops_on_non_retryable", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), fixedDelay(time.Millisecond), 5, retryable, func(context.Context) error {
			calls++
			return errFatal
		})
		assert.ErrorIs(t, err, errFatal)
		assert.Equal(t, 1, calls)
	})

	t.Run("returns_last_error_when_exhausted", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), fixedDelay(time.Millisecond), 2, retryable, func(context.Context) error {
			calls++
			return errTransient
		})
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 2, calls)
	})

	t.Run("cancelled_context_stops_waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := Retry(ctx, fixedDelay(time.Hour), 3, nil, func(context.Context) error {
			calls++
			cancel()
			return errTransient
		})
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 1, calls)
	})
}
