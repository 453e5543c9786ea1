package domain

import "errors"

var (
	// ErrJobNotFound is returned when the status record for a message does not exist
	ErrJobNotFound = errors.New("import job not found")

	// ErrMalformedMessage is returned when a queue message cannot be decoded.
	// Such messages are rejected without requeue.
	ErrMalformedMessage = errors.New("malformed queue message")
)

// RetryableError wraps failures that should leave the message in the queue so
// broker redelivery can retry the job
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
