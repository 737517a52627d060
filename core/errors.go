package core

import (
	"context"
	"errors"
)

var (
	// ErrAborted marks a call that was cancelled by its caller. It is a
	// terminal state distinct from failure.
	ErrAborted = errors.New("call aborted")

	// ErrModelCallLimit is returned when a run exceeds its model call budget.
	ErrModelCallLimit = errors.New("exceeded max model calls")
)

// IsAbort reports whether err represents caller cancellation rather than a
// failure. Deadline expiry is a failure, not an abort.
func IsAbort(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}
