package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents a Dwell error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrCapabilityDenied ErrorCode = "CAPABILITY_DENIED" // 403
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrInternal         ErrorCode = "INTERNAL"          // 500
	ErrNotReady         ErrorCode = "NOT_READY"         // 503
	ErrTimeout          ErrorCode = "TIMEOUT"           // 504
)

// DwellError represents a structured error with code, status, and details.
type DwellError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *DwellError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *DwellError {
	return &DwellError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewCapabilityDenied creates a 403 error when the browser refuses a capability
// such as screen capture.
func NewCapabilityDenied(capability, reason string) *DwellError {
	msg := fmt.Sprintf("%s denied", capability)
	if reason != "" {
		msg = fmt.Sprintf("%s denied: %s", capability, reason)
	}
	return &DwellError{
		Code:    ErrCapabilityDenied,
		Status:  403,
		Message: msg,
		Details: map[string]any{"capability": capability},
	}
}

// NewNotFound creates a 404 error for a missing item.
func NewNotFound(kind, identifier string) *DwellError {
	return &DwellError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewNotReady creates a 503 error for commands issued before the engine finished init.
func NewNotReady() *DwellError {
	return &DwellError{
		Code:    ErrNotReady,
		Status:  503,
		Message: "tracker is still initializing",
	}
}

// NewTimeout creates a 504 error for a round trip to the extension that did not complete.
func NewTimeout(action string, after time.Duration) *DwellError {
	return &DwellError{
		Code:    ErrTimeout,
		Status:  504,
		Message: fmt.Sprintf("%s timed out after %s", action, after),
		Details: map[string]any{"action": action, "timeout_ms": after.Milliseconds()},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *DwellError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &DwellError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a DwellError with the given code.
func Is(err error, code ErrorCode) bool {
	if dErr, ok := err.(*DwellError); ok {
		return dErr.Code == code
	}
	return false
}
