package retry

import (
	"fmt"
	"strings"
)

// Reason explains why a retry policy gave up.
type Reason string

const (
	// ReasonMaxTriesExceeded means every allowed attempt failed with a
	// retryable error.
	ReasonMaxTriesExceeded Reason = "max-tries-exceeded"
	// ReasonErrorNotRetryable means an attempt failed with an error the
	// policy does not retry.
	ReasonErrorNotRetryable Reason = "error-not-retryable"
)

// Error is the failure outcome of a retry policy. It keeps the error of
// every attempt in order; Unwrap exposes the last one so errors.Is and
// errors.As see the root cause.
type Error struct {
	Reason Reason
	Errors []error
}

// Error implements the error interface.
func (e *Error) Error() string {
	last := e.LastError()
	if len(e.Errors) <= 1 {
		return fmt.Sprintf("retry: %s: %v", e.Reason, last)
	}

	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = fmt.Sprintf("try %d: %v", i+1, err)
	}

	return fmt.Sprintf("retry: %s after %d tries: %s", e.Reason, len(e.Errors), strings.Join(msgs, "; "))
}

// LastError returns the error of the final attempt.
func (e *Error) LastError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// Unwrap returns the last underlying error.
func (e *Error) Unwrap() error {
	return e.LastError()
}
