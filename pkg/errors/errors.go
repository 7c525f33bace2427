// Package errors provides structured error types for diagramflow.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the engine, CLI and HTTP service
//   - Machine-readable error codes for programmatic handling
//   - Soft warnings that record dropped input without aborting a pass
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Engine codes describe records or layouts the engine had to degrade:
//   - MALFORMED_RECORD, MISSING_ID, UNKNOWN_KIND: record-level problems
//   - DANGLING_EDGE, ANCESTOR_EDGE: edges that cannot be kept
//   - PARENT_CYCLE, GROUP_CYCLE, EMPTY_GROUP: containment problems
//   - LAYOUT_INFEASIBLE, ITERATION_CAP: fallbacks taken by layout stages
//
// Service codes are returned by the runner, stores and HTTP handlers.
//
// The engine never fails hard on these: it accumulates them in a
// [Warnings] list and keeps going. Only the service layer returns them as
// errors.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeRunNotFound, "run %s not found", token)
//	if errors.Is(err, errors.ErrCodeRunNotFound) {
//	    // Handle missing run
//	}
//
//	var w errors.Warnings
//	w.Add(errors.ErrCodeDanglingEdge, id, "target %s not in scene", tgt)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Engine codes.
const (
	ErrCodeMalformedRecord  Code = "MALFORMED_RECORD"
	ErrCodeMissingID        Code = "MISSING_ID"
	ErrCodeUnknownKind      Code = "UNKNOWN_KIND"
	ErrCodeDanglingEdge     Code = "DANGLING_EDGE"
	ErrCodeAncestorEdge     Code = "ANCESTOR_EDGE"
	ErrCodeParentCycle      Code = "PARENT_CYCLE"
	ErrCodeGroupCycle       Code = "GROUP_CYCLE"
	ErrCodeEmptyGroup       Code = "EMPTY_GROUP"
	ErrCodeLayoutInfeasible Code = "LAYOUT_INFEASIBLE"
	ErrCodeIterationCap     Code = "ITERATION_CAP"
)

// Service codes.
const (
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeRunNotFound    Code = "RUN_NOT_FOUND"
	ErrCodePresetNotFound Code = "PRESET_NOT_FOUND"
	ErrCodeInternal       Code = "INTERNAL_ERROR"
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
