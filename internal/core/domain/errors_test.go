package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("DM-TEST-1000", "test message"),
			expected: "[DM-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("DM-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[DM-TEST-1001] test message: extra info",
		},
		{
			name:     "error with cause",
			err:      NewDomainError("DM-TEST-1002", "test message").WithCause(errors.New("boom")),
			expected: "[DM-TEST-1002] test message: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("DM-TEST-1000", "message 1")
	err2 := NewDomainError("DM-TEST-1000", "message 2") // Same code, different message
	err3 := NewDomainError("DM-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_NestedCauseChain(t *testing.T) {
	rpcErr := NewRPCError(TypeApplication, TagOperationFailed, SeverityWarning, "no answer")
	err := ErrReadFailed.WithCause(ErrCoordinatorUnresponsive.WithCause(rpcErr))

	if !errors.Is(err, ErrReadFailed) {
		t.Error("errors.Is(err, ErrReadFailed) = false, want true")
	}
	if !errors.Is(err, ErrCoordinatorUnresponsive) {
		t.Error("errors.Is(err, ErrCoordinatorUnresponsive) = false, want true")
	}
	if errors.Is(err, ErrRemoteOperationFailed) {
		t.Error("errors.Is(err, ErrRemoteOperationFailed) = true, want false")
	}

	var got *RPCError
	if !errors.As(err, &got) {
		t.Fatal("errors.As should find the RPCError")
	}
	if got != rpcErr {
		t.Errorf("errors.As() = %v, want %v", got, rpcErr)
	}
}

func TestDomainError_WithCause(t *testing.T) {
	original := NewDomainError("DM-TEST-1000", "original message")
	cause := fmt.Errorf("root cause")
	withCause := original.WithCause(cause)

	if original.Cause != nil {
		t.Error("WithCause should not modify original error")
	}
	if withCause.Cause != cause {
		t.Errorf("Cause = %v, want %v", withCause.Cause, cause)
	}
	if errors.Unwrap(withCause) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(withCause), cause)
	}
}

func TestIsDomainError(t *testing.T) {
	if !IsDomainError(ErrTransactionClosed, "DM-TX-4090") {
		t.Error("IsDomainError should return true for matching code")
	}
	if IsDomainError(ErrTransactionClosed, "DM-TX-9999") {
		t.Error("IsDomainError should return false for non-matching code")
	}
	if !IsDomainError(ErrTransactionClosed, "") {
		t.Error("IsDomainError with empty code should match any DomainError")
	}
	if IsDomainError(fmt.Errorf("regular error"), "DM-TX-4090") {
		t.Error("IsDomainError should return false for non-DomainError")
	}

	wrapped := fmt.Errorf("wrapped: %w", ErrTransactionClosed)
	if !IsDomainError(wrapped, "DM-TX-4090") {
		t.Error("IsDomainError should work with wrapped errors")
	}

	nested := ErrReadFailed.WithCause(ErrCoordinatorUnresponsive.WithCause(fmt.Errorf("deadline")))
	if !IsDomainError(nested, ErrCoordinatorUnresponsive.Code) {
		t.Error("IsDomainError should find a code among the causes")
	}
	if IsDomainError(nested, ErrRemoteOperationFailed.Code) {
		t.Error("IsDomainError matched a code absent from the chain")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrCoordinatorUnresponsive, "DM-TX-5040"},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrDeviceNotFound), "DM-DEV-4040"},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}
