package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures so callers can decide between retrying,
// abandoning a subtree, or stopping the run.
type ErrorType string

const (
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeServer     ErrorType = "server"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeMalformed  ErrorType = "malformed"
	ErrorTypeLocalIO    ErrorType = "local_io"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error is a typed API or pipeline error. Code carries the HTTP status when
// the error originated from a remote response, zero otherwise.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a typed error.
func New(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Code: code}
}

// IsRetryable reports whether an error type should be retried.
func IsRetryable(t ErrorType) bool {
	switch t {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServer:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode reports whether an HTTP status indicates a transient
// failure.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // transport-level failure
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown when err
// is not a typed error.
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// IsTransient reports whether err is a retryable remote failure.
func IsTransient(err error) bool {
	return IsRetryable(TypeOf(err))
}

// IsPermission reports whether err is a permission-class failure
// (forbidden or not-found; the remote API reports inaccessible items as 404).
func IsPermission(err error) bool {
	return TypeOf(err) == ErrorTypePermission
}

// IsMalformed reports whether err flags an undecodable remote response.
func IsMalformed(err error) bool {
	return TypeOf(err) == ErrorTypeMalformed
}
