package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorCategory represents the category of an outbound API failure
type ErrorCategory string

const (
	CategoryClientError  ErrorCategory = "client_error"  // 4xx, our request was wrong
	CategoryAuthError    ErrorCategory = "auth_error"    // 401/403
	CategoryNotFound     ErrorCategory = "not_found"     // 404
	CategoryRateLimited  ErrorCategory = "rate_limited"  // 429
	CategoryServerError  ErrorCategory = "server_error"  // 5xx
	CategoryNetworkError ErrorCategory = "network_error" // no response at all
	CategoryTimeout      ErrorCategory = "timeout"
)

// APIError is a failed call to an external HTTP API
type APIError struct {
	Err        error
	Category   ErrorCategory
	Code       string
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Category, e.Err)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: status %d (%s): %s", e.Category, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Category, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether the failure says something about the
// dependency's health rather than about the request.
func (e *APIError) IsTransient() bool {
	switch e.Category {
	case CategoryServerError, CategoryNetworkError, CategoryTimeout, CategoryRateLimited:
		return true
	default:
		return false
	}
}

// ClassifyStatus maps an HTTP status code to a category
func ClassifyStatus(status int) ErrorCategory {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CategoryAuthError
	case status == http.StatusNotFound:
		return CategoryNotFound
	case status == http.StatusTooManyRequests:
		return CategoryRateLimited
	case status >= 500:
		return CategoryServerError
	default:
		return CategoryClientError
	}
}

// NewStatusError builds an APIError from a non-success response
func NewStatusError(status int, code, message string) *APIError {
	return &APIError{
		Category:   ClassifyStatus(status),
		StatusCode: status,
		Code:       code,
		Message:    message,
	}
}

// NewTransportError builds an APIError for a request that got no response
func NewTransportError(err error) *APIError {
	category := CategoryNetworkError
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		category = CategoryTimeout
	}
	return &APIError{Category: category, Err: err}
}

// IsTransient reports whether err wraps a transient APIError
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsTransient()
	}
	return false
}
