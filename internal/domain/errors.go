package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Webhook Errors (WEBHOOK_*)
	ErrorCodeInvalidSignature ErrorCode = "WEBHOOK_INVALID_SIGNATURE"
	ErrorCodeInvalidPayload   ErrorCode = "WEBHOOK_INVALID_PAYLOAD"

	// Order Errors (ORDER_*)
	ErrorCodeOrderNotFound     ErrorCode = "ORDER_NOT_FOUND"
	ErrorCodeRefundNotFound    ErrorCode = "REFUND_NOT_FOUND"
	ErrorCodeOrderInvalidState ErrorCode = "ORDER_INVALID_STATE"

	// Remote Errors (REMOTE_*)
	ErrorCodeRemoteFetch       ErrorCode = "REMOTE_FETCH_FAILED"
	ErrorCodeRemoteComplete    ErrorCode = "REMOTE_COMPLETE_ORDER_FAILED"
	ErrorCodeRemoteCancel      ErrorCode = "REMOTE_CANCEL_ORDER_FAILED"
	ErrorCodeRemoteRefund      ErrorCode = "REMOTE_REFUND_ORDER_FAILED"
	ErrorCodeRemoteUnavailable ErrorCode = "REMOTE_UNAVAILABLE"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.ErrorCode()
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeOrderNotFound || code == ErrorCodeRefundNotFound
}

// IsWebhookRejection reports whether err rejects a delivery before any business logic ran.
func IsWebhookRejection(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeInvalidSignature || code == ErrorCodeInvalidPayload
}

// IsRemoteError checks if an error came from a failed call to the provider
func IsRemoteError(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr)
}

var (
	ErrInvalidSignature = NewDomainError(ErrorCodeInvalidSignature, "webhook signature mismatch")
	ErrInvalidPayload   = NewDomainError(ErrorCodeInvalidPayload, "webhook payload is not valid JSON")

	ErrOrderNotFound  = NewDomainError(ErrorCodeOrderNotFound, "order not found")
	ErrRefundNotFound = NewDomainError(ErrorCodeRefundNotFound, "refund not found")

	ErrValidationFailed        = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrValidationAmountInvalid = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")

	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)

// Remote operation sentinels, matched with errors.Is through RemoteError.
var (
	ErrRemoteFetch         = errors.New("remote transaction fetch failed")
	ErrCompleteRemoteOrder = errors.New("complete remote poynt order failed")
	ErrCancelRemoteOrder   = errors.New("cancel remote poynt order failed")
	ErrRefundRemoteOrder   = errors.New("refund remote poynt order failed")
	ErrRemoteUnavailable   = errors.New("remote provider unavailable")
)

// RemoteError is a fatal failure of a call to the provider. It carries the
// remote HTTP status and the provider's developer-facing message.
type RemoteError struct {
	Kind       error
	Operation  string
	Code       string
	Message    string
	StatusCode int
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%v: %s returned %d (%s): %s", e.Kind, e.Operation, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%v: %s returned %d: %s", e.Kind, e.Operation, e.StatusCode, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Kind
}

// ErrorCode maps the remote failure onto the domain error taxonomy.
func (e *RemoteError) ErrorCode() ErrorCode {
	switch e.Kind {
	case ErrCompleteRemoteOrder:
		return ErrorCodeRemoteComplete
	case ErrCancelRemoteOrder:
		return ErrorCodeRemoteCancel
	case ErrRefundRemoteOrder:
		return ErrorCodeRemoteRefund
	case ErrRemoteUnavailable:
		return ErrorCodeRemoteUnavailable
	default:
		return ErrorCodeRemoteFetch
	}
}

// NewRemoteError builds a RemoteError of the given kind.
func NewRemoteError(kind error, operation string, statusCode int, code, message string) *RemoteError {
	return &RemoteError{
		Kind:       kind,
		Operation:  operation,
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

// AsRemoteKind re-labels an existing remote failure for a different operation,
// keeping its status and provider message.
func AsRemoteKind(err error, kind error, operation string) error {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return &RemoteError{
			Kind:       kind,
			Operation:  operation,
			StatusCode: remoteErr.StatusCode,
			Code:       remoteErr.Code,
			Message:    remoteErr.Message,
		}
	}
	return fmt.Errorf("%w: %s: %v", kind, operation, err)
}

// HasRemoteCode reports whether err is a RemoteError carrying the provider code.
func HasRemoteCode(err error, code string) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr) && remoteErr.Code == code
}
