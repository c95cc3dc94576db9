// Package errors provides structured error types for realmmap.
//
// Errors carry a machine-readable [Code] so the CLI and the HTTP API can
// report the same failure consistently: the CLI prints [UserMessage], the
// server maps the code to a status with [HTTPStatus].
//
// Codes are grouped by prefix:
//   - INVALID_*: input validation failures
//   - *_NOT_FOUND: missing tiers, regions and sessions
//   - NETWORK_ERROR, TIMEOUT, RATE_LIMITED: transport failures
//   - DATA_UNAVAILABLE, NOT_READY: explorer lifecycle states
//
// Engine no-ops (clicking a leaf, clicking background) are not errors and
// never produce one.
//
//	err := errors.New(errors.ErrCodeInvalidTier, "unknown tier %q", name)
//	if errors.Is(err, errors.ErrCodeInvalidTier) {
//	    // reject the request
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidTier    Code = "INVALID_TIER"
	ErrCodeInvalidRegion  Code = "INVALID_REGION"
	ErrCodeInvalidDataset Code = "INVALID_DATASET"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeTierNotFound    Code = "TIER_NOT_FOUND"
	ErrCodeRegionNotFound  Code = "REGION_NOT_FOUND"
	ErrCodeSessionNotFound Code = "SESSION_NOT_FOUND"

	// Network errors
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Explorer lifecycle
	ErrCodeDataUnavailable Code = "DATA_UNAVAILABLE"
	ErrCodeNotReady        Code = "NOT_READY"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

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

// Is reports whether any *Error in err's chain carries code, so a
// DATA_UNAVAILABLE error wrapping a TIER_NOT_FOUND one matches both.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
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
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code the API responds with.
// Errors without a code map to 500.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidTier, ErrCodeInvalidRegion, ErrCodeInvalidPath:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeTierNotFound, ErrCodeRegionNotFound, ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeNotReady:
		return http.StatusConflict
	case ErrCodeDataUnavailable, ErrCodeNetwork, ErrCodeInvalidDataset:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
