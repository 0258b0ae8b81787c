// Package errors provides structured error types for pdnroute.
//
// Every failure the routing core can produce belongs to one of a small set of
// codes. The codes mirror the three failure classes of the pipeline:
//   - structural precondition violations (DUPLICATE_STAMP, INSUFFICIENT_CELLS,
//     SINGULAR_SYSTEM): the net is unusable, fail fast
//   - routing failures (UNREACHABLE): fatal for the segment
//   - numerical failures (NOT_CONVERGED): surfaced, never masked
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnreachable, "net %d layer %d segment %d: goal unreachable", net, layer, seg)
//	if errors.Is(err, errors.ErrCodeUnreachable) {
//	    // an outer loop may retry with different congestion weights
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidInput, origErr, "decode board %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"

	// Structural precondition violations
	ErrCodeDuplicateStamp    Code = "DUPLICATE_STAMP"
	ErrCodeInsufficientCells Code = "INSUFFICIENT_CELLS"
	ErrCodeSingularSystem    Code = "SINGULAR_SYSTEM"

	// Routing failures
	ErrCodeUnreachable Code = "UNREACHABLE"

	// Numerical failures
	ErrCodeNotConverged Code = "NOT_CONVERGED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Fatal reports whether err belongs to a class that invalidates the
// electrical results of the affected net. Input errors are not fatal in
// this sense: nothing was computed yet.
func Fatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeDuplicateStamp, ErrCodeInsufficientCells, ErrCodeSingularSystem,
		ErrCodeUnreachable, ErrCodeNotConverged, ErrCodeInternal:
		return true
	}
	return false
}
