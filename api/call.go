// Package api composes throttling and retrying around a single provider
// call and defines the error type provider adapters report.
package api

import (
	"context"
	"fmt"

	"github.com/hupe1980/modelmesh/core"
	"github.com/hupe1980/modelmesh/retry"
	"github.com/hupe1980/modelmesh/throttle"
)

// Configuration holds the call policies of a model. Nil fields fall back to
// the defaults of DefaultConfiguration.
type Configuration struct {
	Retry    retry.Function
	Throttle throttle.Function
}

// DefaultConfiguration retries transient errors with exponential backoff and
// does not throttle.
func DefaultConfiguration() Configuration {
	return Configuration{
		Retry:    retry.WithExponentialBackoff(),
		Throttle: throttle.Off(),
	}
}

// WithDefaults returns c with nil policies replaced by the defaults.
func (c Configuration) WithDefaults() Configuration {
	if c.Retry == nil {
		c.Retry = retry.WithExponentialBackoff()
	}
	if c.Throttle == nil {
		c.Throttle = throttle.Off()
	}
	return c
}

// Call runs call through the policies of cfg.
func Call[T any](ctx context.Context, cfg Configuration, call func(ctx context.Context) (T, error)) (T, int, error) {
	cfg = cfg.WithDefaults()
	return CallWithRetryAndThrottle(ctx, cfg.Throttle, cfg.Retry, call)
}

// CallWithRetryAndThrottle runs call once admitted by th and retries it
// according to rt. All attempts run inside the same throttle slot.
//
// It returns the value of the successful attempt and the number of attempts
// made. On failure the error is a *retry.Error; on cancellation it wraps
// core.ErrAborted.
func CallWithRetryAndThrottle[T any](ctx context.Context, th throttle.Function, rt retry.Function, call func(ctx context.Context) (T, error)) (T, int, error) {
	var (
		value T
		res   retry.Result
	)

	err := th(ctx, func(ctx context.Context) error {
		value, res = retry.Do(ctx, rt, call)
		return nil
	})
	if err != nil {
		var zero T
		return zero, 0, err
	}

	switch res.Status {
	case retry.StatusSuccess:
		return value, res.Tries, nil
	case retry.StatusAbort:
		var zero T
		return zero, res.Tries, fmt.Errorf("%w: %w", core.ErrAborted, res.Err)
	default:
		var zero T
		return zero, res.Tries, res.Err
	}
}
