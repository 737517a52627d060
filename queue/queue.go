// Package queue provides an unbounded, multi-consumer queue that bridges
// push-based producers (HTTP streaming responses, provider SDK streams) to
// pull-based consumers.
//
// Every item pushed is retained until the queue is garbage collected, so each
// Iterator observes the complete sequence from the first item onwards in push
// order, no matter when it was created. A queue ends either normally (Close)
// or with a single terminal error (CloseWithError).
package queue

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
)

// ErrClosed is returned by Push once the queue has been closed.
var ErrClosed = errors.New("queue: push after close")

// Queue is an unbounded ordered buffer with a closed flag and an optional
// terminal error. The zero value is not usable; construct with New or Of.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	err    error

	// changed is closed (and replaced) whenever items, closed or err change.
	changed chan struct{}
}

// New creates an empty open queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{changed: make(chan struct{})}
}

// Of returns a closed queue holding items. It is used to normalize eager
// values into the same shape as streamed input.
func Of[T any](items ...T) *Queue[T] {
	q := New[T]()
	q.items = append(q.items, items...)
	q.closed = true
	return q
}

// Push appends item to the tail. After Close it returns ErrClosed and the
// item is dropped.
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	q.items = append(q.items, item)
	q.broadcastLocked()

	return nil
}

// Close marks that no more items will arrive. It is idempotent.
func (q *Queue[T]) Close() {
	q.terminate(nil)
}

// CloseWithError closes the queue with a terminal error that every consumer
// receives once after draining the buffered items. Only the first terminal
// call has an effect.
func (q *Queue[T]) CloseWithError(err error) {
	q.terminate(err)
}

func (q *Queue[T]) terminate(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	q.err = err
	q.broadcastLocked()
}

func (q *Queue[T]) broadcastLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// Closed reports whether the queue has been closed.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.closed
}

// Len returns the number of items pushed so far.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Iterator returns a new single-pass cursor positioned before the first item.
func (q *Queue[T]) Iterator() *Iterator[T] {
	return &Iterator[T]{q: q}
}

// All returns a range-over-func view backed by a fresh Iterator.
//
// A terminal queue error is yielded once as (zero, err). Cancellation ends
// the sequence silently; an expired deadline is yielded like any other error.
func (q *Queue[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		it := q.Iterator()
		for {
			item, err := it.Next(ctx)
			switch {
			case err == nil:
				if !yield(item, nil) {
					return
				}
			case errors.Is(err, io.EOF):
				return
			case errors.Is(err, context.Canceled):
				return
			default:
				var zero T
				yield(zero, err)
				return
			}
		}
	}
}

// Iterator is an independent consumer of a Queue. It is not safe for
// concurrent use; create one Iterator per consumer.
type Iterator[T any] struct {
	q       *Queue[T]
	pos     int
	errSeen bool
}

// Next returns the next item, suspending until one is pushed, the queue
// closes, or ctx is done. Once drained it returns the terminal error (if
// any) exactly once and io.EOF afterwards.
func (it *Iterator[T]) Next(ctx context.Context) (T, error) {
	var zero T

	for {
		it.q.mu.Lock()
		if it.pos < len(it.q.items) {
			item := it.q.items[it.pos]
			it.pos++
			it.q.mu.Unlock()

			return item, nil
		}

		if it.q.closed {
			err := it.q.err
			it.q.mu.Unlock()

			if err != nil && !it.errSeen {
				it.errSeen = true
				return zero, err
			}

			return zero, io.EOF
		}

		changed := it.q.changed
		it.q.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-changed:
		}
	}
}
