// Package domain defines the core domain models for DevMesh.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
// Codes follow the format DM-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "DM-TX-4090")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError reports whether err or any DomainError cause in its chain
// has the given code. An empty code matches any DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	for errors.As(err, &de) {
		if code == "" || de.Code == code {
			return true
		}
		err = de.Cause
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Transaction Errors (TX)
// ============================================================================

var (
	// ErrTransactionClosed indicates an operation on a transaction that was
	// already submitted or cancelled. Raised locally, nothing is sent.
	ErrTransactionClosed = NewDomainError("DM-TX-4090", "transaction already submitted or cancelled")

	// ErrReadFailed is the outcome of a read or exists call that failed.
	ErrReadFailed = NewDomainError("DM-TX-5000", "read failed")

	// ErrCommitFailed is the outcome of a submit or commit call that failed.
	ErrCommitFailed = NewDomainError("DM-TX-5001", "commit failed")

	// ErrCancelFailed is the outcome of a cancel call that failed.
	ErrCancelFailed = NewDomainError("DM-TX-5002", "cancel failed")

	// ErrRemoteOperationFailed indicates the coordinator explicitly reported a failure.
	ErrRemoteOperationFailed = NewDomainError("DM-TX-5020", "remote operation failed")

	// ErrDispatchFailed indicates a request could not be handed to the transport.
	ErrDispatchFailed = NewDomainError("DM-TX-5030", "request dispatch failed")

	// ErrCoordinatorUnresponsive indicates no reply arrived before the deadline.
	ErrCoordinatorUnresponsive = NewDomainError("DM-TX-5040", "coordinator did not respond")
)

// ============================================================================
// Device Errors (DEV)
// ============================================================================

var (
	// ErrDeviceNotFound indicates the device is not mounted on any member.
	ErrDeviceNotFound = NewDomainError("DM-DEV-4040", "device not found")

	// ErrDeviceInvalid indicates a malformed device identifier.
	ErrDeviceInvalid = NewDomainError("DM-DEV-4001", "invalid device identifier")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("DM-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("DM-SYS-5001", "storage error")

	// ErrServiceUnavailable indicates the service is temporarily unavailable.
	ErrServiceUnavailable = NewDomainError("DM-SYS-5030", "service unavailable")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("DM-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("DM-ARG-1002", "missing required argument")
)
