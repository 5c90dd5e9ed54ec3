package providers

import (
	"errors"
	"fmt"
)

// StatusRequestCancelled is the status analogue reserved for requests
// cancelled by the client.
const StatusRequestCancelled = 499

// ErrConnClosed is returned by calls made on a closed connection.
var ErrConnClosed = errors.New("upstream connection closed")

// ErrReadTimeout is returned by a stream read that waited longer than the
// connection timeout.
var ErrReadTimeout = errors.New("upstream read timeout")

// Category is the stable classification of a dispatch failure.
type Category string

// Failure categories.
const (
	CategoryAuthenticationFailed Category = "authentication_failed"
	CategoryRateLimited          Category = "rate_limited"
	CategoryInvalidRequest       Category = "invalid_request"
	CategoryUpstreamError        Category = "upstream_error"
	CategoryRegionRestricted     Category = "region_restricted"
	CategoryModelNotFound        Category = "model_not_found"
	CategoryBillingIssue         Category = "billing_issue"
	CategoryRequestCancelled     Category = "request_cancelled"
	CategoryUnknown              Category = "unknown"
)

// Error is the single error type returned by the dispatcher.
// Status is an HTTP status analogue (401, 429, 400, 499, 500 or the
// upstream-reported status) and Message is safe to show to the caller.
type Error struct {
	// Status is the HTTP status analogue
	Status int

	// Category is the classified failure kind
	Category Category

	// Message is the human-actionable message
	Message string

	// Cause is the underlying upstream error (if any)
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s (status %d): %s", e.Category, e.Status, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Cancelled returns the terminal error for a request cancelled by the client.
func Cancelled(cause error) *Error {
	return &Error{
		Status:   StatusRequestCancelled,
		Category: CategoryRequestCancelled,
		Message:  "Request cancelled by client",
		Cause:    cause,
	}
}

// IsCancelled reports whether err is a client cancellation.
func IsCancelled(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Category == CategoryRequestCancelled
}

// ConfigError represents an upstream connection configuration error.
// This occurs when the connection cannot be constructed from its config.
type ConfigError struct {
	// Field is the configuration field that is invalid
	Field string

	// Message describes the configuration error
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("connection configuration error for field %q: %s", e.Field, e.Message)
}
