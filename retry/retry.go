// Package retry provides composable retry policies for model API calls.
//
// A Function is a policy value: it receives a unit of work and decides how
// often and with which delays to run it. Policies are passed around like any
// other value, so a component can substitute its own (for example Never) without
// touching the call site.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Status is the terminal state of a retried operation.
type Status string

const (
	// StatusSuccess means one attempt succeeded.
	StatusSuccess Status = "success"
	// StatusFailure means all attempts failed or an error was not retryable.
	StatusFailure Status = "failure"
	// StatusAbort means the caller cancelled the operation.
	StatusAbort Status = "abort"
)

// Result describes how a retried operation ended.
type Result struct {
	Status Status
	// Tries is the number of attempts that were started.
	Tries int
	// Err is nil on success, a *Error on failure and the cancellation cause
	// on abort.
	Err error
}

// Function runs op according to a retry policy.
type Function func(ctx context.Context, op func(ctx context.Context) error) Result

// Do runs a value-returning op through fn and hands back the value of the
// successful attempt.
func Do[T any](ctx context.Context, fn Function, op func(ctx context.Context) (T, error)) (T, Result) {
	var value T
	res := fn(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if res.Status != StatusSuccess {
		var zero T
		return zero, res
	}
	return value, res
}

// Never returns a policy that performs exactly one attempt.
func Never() Function {
	return func(ctx context.Context, op func(ctx context.Context) error) Result {
		if ctx.Err() != nil {
			return stopped(ctx, 0, nil)
		}

		err := op(ctx)
		switch {
		case err == nil:
			return Result{Status: StatusSuccess, Tries: 1}
		case isAbort(ctx, err):
			return abortResult(ctx, 1)
		default:
			return Result{Status: StatusFailure, Tries: 1, Err: &Error{Reason: ReasonErrorNotRetryable, Errors: []error{err}}}
		}
	}
}

// BackoffOptions tune WithExponentialBackoff. Zero values are replaced with
// the defaults documented on each field.
type BackoffOptions struct {
	// MaxTries is the total number of attempts including the first one.
	// Default: 3.
	MaxTries int

	// InitialDelay is the wait before the second attempt. Default: 2s.
	InitialDelay time.Duration

	// BackoffFactor multiplies the delay after every failed attempt.
	// Default: 2.
	BackoffFactor float64

	// MaxDelay caps the computed delay. Default: 60s.
	MaxDelay time.Duration

	// JitterFraction adds up to JitterFraction*delay of random noise.
	// Default: 0.1. Use a negative value to disable jitter.
	JitterFraction float64

	// Retryable decides whether an error is transient. The default retries
	// errors that implement IsRetryable() bool and report true.
	Retryable func(err error) bool

	// OnRetry is invoked before waiting for the next attempt.
	OnRetry func(try int, err error, delay time.Duration)
}

func applyBackoffDefaults(o *BackoffOptions) {
	if o.MaxTries <= 0 {
		o.MaxTries = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 2 * time.Second
	}
	if o.BackoffFactor <= 0 {
		o.BackoffFactor = 2
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 60 * time.Second
	}
	if o.JitterFraction == 0 {
		o.JitterFraction = 0.1
	}
	if o.JitterFraction < 0 {
		o.JitterFraction = 0
	}
	if o.Retryable == nil {
		o.Retryable = IsRetryable
	}
}

// WithExponentialBackoff returns a policy that retries transient errors
// with exponentially growing delays:
//
//	delay(n) = min(InitialDelay * BackoffFactor^(n-1), MaxDelay) + jitter
//
// Delays never decrease between attempts. An error exposing RetryAfter()
// time.Duration raises the delay to that value.
func WithExponentialBackoff(optFns ...func(o *BackoffOptions)) Function {
	opts := BackoffOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	applyBackoffDefaults(&opts)

	return func(ctx context.Context, op func(ctx context.Context) error) Result {
		var (
			errs      []error
			prevDelay time.Duration
		)

		for try := 1; ; try++ {
			if ctx.Err() != nil {
				return stopped(ctx, try-1, errs)
			}

			err := op(ctx)
			if err == nil {
				return Result{Status: StatusSuccess, Tries: try}
			}
			if isAbort(ctx, err) {
				return abortResult(ctx, try)
			}

			errs = append(errs, err)

			if !opts.Retryable(err) {
				return Result{Status: StatusFailure, Tries: try, Err: &Error{Reason: ReasonErrorNotRetryable, Errors: errs}}
			}
			if try >= opts.MaxTries {
				return Result{Status: StatusFailure, Tries: try, Err: &Error{Reason: ReasonMaxTriesExceeded, Errors: errs}}
			}

			delay := computeDelay(opts, try, err)
			if delay < prevDelay {
				delay = prevDelay
			}
			prevDelay = delay

			if opts.OnRetry != nil {
				opts.OnRetry(try, err, delay)
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return stopped(ctx, try, errs)
			case <-timer.C:
			}
		}
	}
}

// computeDelay returns the wait after the given (1-based) failed try.
func computeDelay(opts BackoffOptions, try int, err error) time.Duration {
	base := float64(opts.InitialDelay) * math.Pow(opts.BackoffFactor, float64(try-1))
	if base > float64(opts.MaxDelay) {
		base = float64(opts.MaxDelay)
	}

	jitter := base * opts.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter is intentional
	delay := time.Duration(base + jitter)

	if ra, ok := retryAfter(err); ok && ra > delay {
		delay = ra
	}

	return delay
}

// IsRetryable reports whether err (or an error it wraps) declares itself
// transient through an IsRetryable() bool method.
func IsRetryable(err error) bool {
	var r interface{ IsRetryable() bool }
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

func retryAfter(err error) (time.Duration, bool) {
	var r interface{ RetryAfter() time.Duration }
	if errors.As(err, &r) {
		if d := r.RetryAfter(); d > 0 {
			return d, true
		}
	}
	return 0, false
}

// isAbort reports whether a failed attempt was caused by caller
// cancellation. Deadlines are failures.
func isAbort(ctx context.Context, err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	return errors.Is(ctx.Err(), context.Canceled)
}

// stopped classifies a done context: cancellation is an abort, an expired
// deadline is a failure carrying the attempts made so far.
func stopped(ctx context.Context, tries int, errs []error) Result {
	if errors.Is(ctx.Err(), context.Canceled) {
		return abortResult(ctx, tries)
	}
	errs = append(errs, ctx.Err())
	return Result{Status: StatusFailure, Tries: tries, Err: &Error{Reason: ReasonErrorNotRetryable, Errors: errs}}
}

func abortResult(ctx context.Context, tries int) Result {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	return Result{Status: StatusAbort, Tries: tries, Err: cause}
}
