package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCategory
	}{
		{http.StatusBadRequest, CategoryClientError},
		{http.StatusUnauthorized, CategoryAuthError},
		{http.StatusForbidden, CategoryAuthError},
		{http.StatusNotFound, CategoryNotFound},
		{http.StatusTooManyRequests, CategoryRateLimited},
		{http.StatusBadGateway, CategoryServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatus(tt.status))
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server_error", NewStatusError(503, "", "unavailable"), true},
		{"rate_limited", NewStatusError(429, "", "slow down"), true},
		{"bad_request", NewStatusError(400, "INVALID_REQUEST", "bad"), false},
		{"timeout", NewTransportError(context.DeadlineExceeded), true},
		{"wrapped_network", fmt.Errorf("get txn: %w", NewTransportError(errors.New("connection refused"))), true},
		{"plain_error", errors.New("other"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestNewTransportError_Timeout(t *testing.T) {
	err := NewTransportError(fmt.Errorf("do: %w", context.DeadlineExceeded))
	assert.Equal(t, CategoryTimeout, err.Category)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
