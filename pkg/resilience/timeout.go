package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the timeout hierarchy, outermost first:
//
//	HTTP Handler (30s)
//	  ↓
//	Webhook reconciliation (25s)
//	  ↓
//	Provider API call (10s)
//	  ↓
//	Database statement (set on the pool)
//
// Each layer must finish before its parent gives up, so the provider sees a
// 5xx instead of a dropped connection.
type TimeoutConfig struct {
	HTTPHandler time.Duration // overall inbound request
	Webhook     time.Duration // one delivery, fetches and local writes included
	ExternalAPI time.Duration // one provider API call
	Publish     time.Duration // one broker publish attempt
	Shutdown    time.Duration // graceful shutdown budget
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 30 * time.Second,
		Webhook:     25 * time.Second,
		ExternalAPI: 10 * time.Second,
		Publish:     5 * time.Second,
		Shutdown:    30 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 5 * time.Second,
		Webhook:     4 * time.Second,
		ExternalAPI: 2 * time.Second,
		Publish:     1 * time.Second,
		Shutdown:    2 * time.Second,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// WebhookContext creates a context for processing one webhook delivery
func (tc *TimeoutConfig) WebhookContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Webhook)
}

// ExternalAPIContext creates a context for a provider API call
func (tc *TimeoutConfig) ExternalAPIContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.ExternalAPI)
}

// PublishContext creates a context for one broker publish attempt
func (tc *TimeoutConfig) PublishContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Publish)
}

// ShutdownContext creates the graceful shutdown context
func (tc *TimeoutConfig) ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Shutdown)
}
