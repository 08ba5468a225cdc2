package domain

import "errors"

var (
	// ErrUnknownEvent is returned for an event type the worker does not handle
	ErrUnknownEvent = errors.New("unknown event type")

	// ErrInvalidPayload is returned when a message payload is malformed
	ErrInvalidPayload = errors.New("invalid message payload")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
