package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorSeverity is the severity of an RPCError.
type ErrorSeverity int

const (
	SeverityError ErrorSeverity = iota
	SeverityWarning
)

// String returns the wire name of the severity.
func (s ErrorSeverity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// ParseSeverity parses a wire severity name. Unknown names map to SeverityError.
func ParseSeverity(s string) ErrorSeverity {
	if strings.EqualFold(s, "warning") {
		return SeverityWarning
	}
	return SeverityError
}

// ErrorType is the protocol layer an RPCError originates from.
type ErrorType int

const (
	TypeApplication ErrorType = iota
	TypeProtocol
	TypeRPC
	TypeTransport
)

var errorTypeNames = [...]string{
	TypeApplication: "application",
	TypeProtocol:    "protocol",
	TypeRPC:         "rpc",
	TypeTransport:   "transport",
}

// String returns the wire name of the error type.
func (t ErrorType) String() string {
	if int(t) < len(errorTypeNames) {
		return errorTypeNames[t]
	}
	return "application"
}

// ParseErrorType parses a wire error type name. Unknown names map to TypeApplication.
func ParseErrorType(s string) ErrorType {
	for i, name := range errorTypeNames {
		if strings.EqualFold(s, name) {
			return ErrorType(i)
		}
	}
	return TypeApplication
}

// ErrorTag classifies an RPCError, using the NETCONF error-tag vocabulary.
type ErrorTag string

const (
	TagAccessDenied          ErrorTag = "access-denied"
	TagDataExists            ErrorTag = "data-exists"
	TagDataMissing           ErrorTag = "data-missing"
	TagInUse                 ErrorTag = "in-use"
	TagInvalidValue          ErrorTag = "invalid-value"
	TagMalformedMessage      ErrorTag = "malformed-message"
	TagOperationFailed       ErrorTag = "operation-failed"
	TagOperationNotSupported ErrorTag = "operation-not-supported"
	TagResourceDenied        ErrorTag = "resource-denied"
)

// RPCError is a classified protocol-level error. It is what a coordinator
// reports back on failure, and what the proxy synthesizes when the
// coordinator stays silent.
type RPCError struct {
	Severity ErrorSeverity
	Type     ErrorType
	Tag      ErrorTag
	AppTag   string
	Message  string
}

// NewRPCError creates an RPCError.
func NewRPCError(typ ErrorType, tag ErrorTag, severity ErrorSeverity, message string) *RPCError {
	return &RPCError{
		Severity: severity,
		Type:     typ,
		Tag:      tag,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("%s %s/%s: %s", e.Severity, e.Type, e.Tag, e.Message)
}

// AsRPCError classifies an arbitrary error as an application-level
// operation-failed RPCError. An RPCError anywhere in the chain is
// returned unchanged.
func AsRPCError(err error) *RPCError {
	if err == nil {
		return nil
	}
	var re *RPCError
	if errors.As(err, &re) {
		return re
	}
	return NewRPCError(TypeApplication, TagOperationFailed, SeverityError, err.Error())
}
