package model

// Delta is one incremental unit of a streamed model response: either a
// value or a terminal error.
type Delta[T any] struct {
	Value T
	Err   error
}

// ValueDelta wraps a successful incremental value.
func ValueDelta[T any](v T) Delta[T] { return Delta[T]{Value: v} }

// ErrorDelta wraps a terminal stream error.
func ErrorDelta[T any](err error) Delta[T] { return Delta[T]{Err: err} }

// IsError reports whether d terminates the stream with an error.
func (d Delta[T]) IsError() bool { return d.Err != nil }
