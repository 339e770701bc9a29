package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestDomainErrors_Sentinels checks every sentinel carries its code and a message
func TestDomainErrors_Sentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		code     ErrorCode
		contains string
	}{
		{name: "invalid_signature", err: ErrInvalidSignature, code: ErrorCodeInvalidSignature, contains: "signature"},
		{name: "invalid_payload", err: ErrInvalidPayload, code: ErrorCodeInvalidPayload, contains: "json"},
		{name: "order_not_found", err: ErrOrderNotFound, code: ErrorCodeOrderNotFound, contains: "order not found"},
		{name: "refund_not_found", err: ErrRefundNotFound, code: ErrorCodeRefundNotFound, contains: "refund not found"},
		{name: "validation_failed", err: ErrValidationFailed, code: ErrorCodeValidationFailed, contains: "validation"},
		{name: "amount_invalid", err: ErrValidationAmountInvalid, code: ErrorCodeValidationAmountInvalid, contains: "amount"},
		{name: "database", err: ErrDatabaseError, code: ErrorCodeDatabaseError, contains: "database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.code)
			}
			if !strings.Contains(strings.ToLower(tt.err.Error()), tt.contains) {
				t.Errorf("error message %q does not contain %q", tt.err.Error(), tt.contains)
			}
		})
	}
}

func TestDomainErrors_Wrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapError(ErrorCodeDatabaseError, "load order 7", cause).WithDetail("order_id", 7)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable with errors.Is")
	}
	if got := GetErrorCode(fmt.Errorf("handler: %w", err)); got != ErrorCodeDatabaseError {
		t.Errorf("GetErrorCode through fmt wrap = %q", got)
	}
	if err.Details["order_id"] != 7 {
		t.Errorf("detail missing: %v", err.Details)
	}
	if want := "INTERNAL_DATABASE_ERROR: load order 7: connection reset"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestDomainErrors_Classification(t *testing.T) {
	notFound := fmt.Errorf("resolve: %w", ErrOrderNotFound)
	rejected := WrapError(ErrorCodeInvalidSignature, "delivery abc", ErrInvalidSignature)
	remote := NewRemoteError(ErrRefundRemoteOrder, "refund transaction", 400, "INVALID_AMOUNT", "amount exceeds")

	tests := []struct {
		name      string
		err       error
		notFound  bool
		rejection bool
		remote    bool
		code      ErrorCode
	}{
		{name: "not_found", err: notFound, notFound: true, code: ErrorCodeOrderNotFound},
		{name: "webhook_rejection", err: rejected, rejection: true, code: ErrorCodeInvalidSignature},
		{name: "remote_refund", err: remote, remote: true, code: ErrorCodeRemoteRefund},
		{name: "plain", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFoundError(tt.err); got != tt.notFound {
				t.Errorf("IsNotFoundError = %v", got)
			}
			if got := IsWebhookRejection(tt.err); got != tt.rejection {
				t.Errorf("IsWebhookRejection = %v", got)
			}
			if got := IsRemoteError(tt.err); got != tt.remote {
				t.Errorf("IsRemoteError = %v", got)
			}
			if got := GetErrorCode(tt.err); got != tt.code {
				t.Errorf("GetErrorCode = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestRemoteError_KindsAndCodes(t *testing.T) {
	tests := []struct {
		kind error
		code ErrorCode
	}{
		{kind: ErrCompleteRemoteOrder, code: ErrorCodeRemoteComplete},
		{kind: ErrCancelRemoteOrder, code: ErrorCodeRemoteCancel},
		{kind: ErrRefundRemoteOrder, code: ErrorCodeRemoteRefund},
		{kind: ErrRemoteUnavailable, code: ErrorCodeRemoteUnavailable},
		{kind: ErrRemoteFetch, code: ErrorCodeRemoteFetch},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := NewRemoteError(tt.kind, "op", 500, "", "down")
			if !errors.Is(err, tt.kind) {
				t.Errorf("errors.Is(%v) = false", tt.kind)
			}
			if err.ErrorCode() != tt.code {
				t.Errorf("ErrorCode = %s, want %s", err.ErrorCode(), tt.code)
			}
		})
	}
}

func TestAsRemoteKind(t *testing.T) {
	fetch := NewRemoteError(ErrRemoteFetch, "get order", 409, "ITEMS_NOT_FULFILLED", "open items")

	relabelled := AsRemoteKind(fetch, ErrCompleteRemoteOrder, "complete order")
	if !errors.Is(relabelled, ErrCompleteRemoteOrder) || errors.Is(relabelled, ErrRemoteFetch) {
		t.Errorf("relabelled error has wrong kind: %v", relabelled)
	}
	if !HasRemoteCode(relabelled, "ITEMS_NOT_FULFILLED") {
		t.Error("provider code should survive relabelling")
	}

	plain := AsRemoteKind(errors.New("dial tcp: timeout"), ErrCancelRemoteOrder, "cancel order")
	if !errors.Is(plain, ErrCancelRemoteOrder) {
		t.Errorf("plain error should wrap the kind: %v", plain)
	}
	if HasRemoteCode(plain, "ITEMS_NOT_FULFILLED") {
		t.Error("plain error has no provider code")
	}
}
