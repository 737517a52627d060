// Package throttle provides admission control for model API calls,
// independent of retry and backoff.
//
// A Function is a policy value: share one value between callers to share
// its limit across the whole process.
package throttle

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/modelmesh/core"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Function runs op once it is admitted. Waiting honors ctx: a cancelled wait
// returns an error wrapping core.ErrAborted without running op.
type Function func(ctx context.Context, op func(ctx context.Context) error) error

// Off returns the identity throttle.
func Off() Function {
	return func(ctx context.Context, op func(ctx context.Context) error) error {
		return op(ctx)
	}
}

// MaxConcurrency admits at most n concurrent ops. Excess callers wait and are
// released in arrival order as slots free up.
//
// Work running inside a slot may itself call the same throttle, but the
// nesting depth times the number of concurrent outer calls must stay below n,
// otherwise every slot can end up held by a caller waiting for another slot.
func MaxConcurrency(n int64) Function {
	if n <= 0 {
		n = 1
	}
	sem := semaphore.NewWeighted(n)

	return func(ctx context.Context, op func(ctx context.Context) error) error {
		if err := sem.Acquire(ctx, 1); err != nil {
			return waitError(ctx, err)
		}
		defer sem.Release(1)

		return op(ctx)
	}
}

// RateLimit admits ops according to limiter (requests per second with burst).
func RateLimit(limiter *rate.Limiter) Function {
	return func(ctx context.Context, op func(ctx context.Context) error) error {
		if err := limiter.Wait(ctx); err != nil {
			return waitError(ctx, err)
		}

		return op(ctx)
	}
}

// Chain composes throttles; the first one is applied outermost.
func Chain(fns ...Function) Function {
	return func(ctx context.Context, op func(ctx context.Context) error) error {
		wrapped := op
		for i := len(fns) - 1; i >= 0; i-- {
			fn, next := fns[i], wrapped
			if fn == nil {
				continue
			}
			wrapped = func(ctx context.Context) error { return fn(ctx, next) }
		}
		return wrapped(ctx)
	}
}

func waitError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("throttle: %w: %w", core.ErrAborted, context.Cause(ctx))
	}
	return fmt.Errorf("throttle: %w", err)
}
