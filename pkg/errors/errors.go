package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the kinds of failure the downloader distinguishes
type ErrorType string

const (
	ErrorTypeAuth         ErrorType = "authentication_failed"
	ErrorTypeNotFound     ErrorType = "profile_not_found"
	ErrorTypeRateLimit    ErrorType = "rate_limited"
	ErrorTypeNetwork      ErrorType = "transient_network"
	ErrorTypeServerError  ErrorType = "server_error"
	ErrorTypeUnresolvable ErrorType = "unresolvable_media"
	ErrorTypePartialBatch ErrorType = "partial_batch_failure"
	ErrorTypeParsing      ErrorType = "parsing"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Error is a typed error carrying an optional HTTP status code and cause
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error around a cause
func Wrap(t ErrorType, err error, message string) *Error {
	msg := message
	if err != nil {
		msg = fmt.Sprintf("%s: %v", message, err)
	}
	return &Error{Type: t, Message: msg, Err: err}
}

// FromStatus maps an HTTP status code to a typed error, or nil for 2xx/3xx
func FromStatus(code int, url string) *Error {
	if code < 400 {
		return nil
	}
	var t ErrorType
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		t = ErrorTypeAuth
	case code == http.StatusNotFound:
		t = ErrorTypeNotFound
	case code == http.StatusTooManyRequests:
		t = ErrorTypeRateLimit
	case code >= 500:
		t = ErrorTypeServerError
	default:
		t = ErrorTypeUnknown
	}
	return &Error{Type: t, Message: fmt.Sprintf("unexpected response from %s", url), Code: code}
}

// FromMediaStatus maps a media CDN status code to a typed error, or nil for
// 2xx/3xx. A file URL failing says nothing about the account or profile, so
// client errors are reported as transient network failures.
func FromMediaStatus(code int, url string) *Error {
	if code < 400 {
		return nil
	}
	var t ErrorType
	switch {
	case code == http.StatusTooManyRequests:
		t = ErrorTypeRateLimit
	case IsRetryableStatusCode(code):
		t = ErrorTypeServerError
	default:
		t = ErrorTypeNetwork
	}
	return &Error{Type: t, Message: fmt.Sprintf("media request to %s failed", url), Code: code}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown when untyped
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err (or anything it wraps) is a typed error of kind t
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, http.StatusTooManyRequests:
		return true
	default:
		return statusCode >= 500
	}
}
