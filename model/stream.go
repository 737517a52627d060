package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/hupe1980/modelmesh/api"
	"github.com/hupe1980/modelmesh/core"
	"github.com/hupe1980/modelmesh/logging"
	"github.com/hupe1980/modelmesh/queue"
)

// StreamCallConfig describes one streaming call for ExecuteStreamCall.
type StreamCallConfig[V any] struct {
	// FunctionType names the entry point, e.g. "stream-text".
	FunctionType string
	// Input is reported with the call events.
	Input any
	Model Model
	// Options of the call.
	Options CallOptions

	// StartStream opens the provider stream. It runs through the model's
	// retry and throttle policies.
	StartStream func(ctx context.Context) (*queue.Queue[Delta[any]], error)

	// ProcessDelta maps a raw delta value to a public item. Returning false
	// filters the delta without ending the stream.
	ProcessDelta func(raw any) (V, bool)

	// OnDone runs after the stream completed successfully. Its result is
	// reported as the raw output of the finish event.
	OnDone func() any
}

// StreamCallResult pairs the processed stream with the call metadata. The
// stream and the metadata complete independently: metadata is available
// once the pipeline has finished, whether or not anyone consumed the stream.
type StreamCallResult[V any] struct {
	out  *queue.Queue[V]
	done chan struct{}

	// Written by the producer before done is closed.
	metadata core.CallMetadata
	err      error
}

// Stream returns the processed items. A failure is yielded once as the
// error of the final pair; an aborted call ends the sequence silently.
func (r *StreamCallResult[V]) Stream(ctx context.Context) iter.Seq2[V, error] {
	return r.out.All(ctx)
}

// Iterator returns a pull iterator over the processed items.
func (r *StreamCallResult[V]) Iterator() *queue.Iterator[V] {
	return r.out.Iterator()
}

// Done is closed when the pipeline has finished.
func (r *StreamCallResult[V]) Done() <-chan struct{} {
	return r.done
}

// Metadata waits for the pipeline to finish and returns the final metadata
// together with the terminal error: nil, a failure, or an error wrapping
// core.ErrAborted.
func (r *StreamCallResult[V]) Metadata(ctx context.Context) (core.CallMetadata, error) {
	select {
	case <-r.done:
		return r.metadata, r.err
	default:
	}

	select {
	case <-r.done:
		return r.metadata, r.err
	case <-ctx.Done():
		return core.CallMetadata{}, ctx.Err()
	}
}

// ExecuteStreamCall runs a streaming model call:
//
//  1. it stamps the metadata and emits call-started
//  2. it opens the stream through the model's retry and throttle policies
//  3. a producer goroutine maps raw deltas through ProcessDelta
//  4. it emits call-finished with the terminal status and final metadata
//
// An error is returned only when the call could not start (call limit or
// connection failure); mid-stream failures are surfaced through the result.
func ExecuteStreamCall[V any](ctx context.Context, cfg StreamCallConfig[V]) (*StreamCallResult[V], error) {
	opts := cfg.Options
	run := opts.Run

	if err := run.AcquireCall(); err != nil {
		return nil, err
	}

	info := cfg.Model.Info()
	settings := cfg.Model.Settings()

	md := core.CallMetadata{
		CallID:         core.NewID(),
		FunctionType:   cfg.FunctionType,
		FunctionID:     opts.FunctionID,
		Model:          info,
		StartTimestamp: time.Now(),
	}
	run.Stamp(&md)

	observers := make([]core.Observer, 0, len(opts.Observers)+len(run.AllObservers())+len(settings.Observers))
	observers = append(observers, opts.Observers...)
	observers = append(observers, run.AllObservers()...)
	observers = append(observers, settings.Observers...)

	logger := opts.Logger
	if logger == nil {
		logger = run.Logger()
	}

	c := &streamCall{
		functionType: cfg.FunctionType,
		input:        cfg.Input,
		md:           md,
		observers:    observers,
		logger:       logger,
	}

	core.Dispatch(observers, core.NewCallStartedEvent(md, cfg.Input))

	raw, tries, err := api.Call(ctx, settings.API, cfg.StartStream)
	c.md.Tries = tries
	if err != nil {
		c.finish(core.FinishStatusOf(err), nil, err)
		return nil, err
	}

	res := &StreamCallResult[V]{
		out:  queue.New[V](),
		done: make(chan struct{}),
	}

	go func() {
		defer close(res.done)

		err := pump(ctx, raw, res.out, cfg.ProcessDelta)

		status := core.FinishStatusOf(err)
		var rawOutput any
		switch status {
		case core.FinishSuccess:
			res.out.Close()
			if cfg.OnDone != nil {
				rawOutput = cfg.OnDone()
			}
		case core.FinishAbort:
			res.out.Close()
		default:
			res.out.CloseWithError(err)
		}

		res.metadata = c.finish(status, rawOutput, err)
		res.err = err
	}()

	return res, nil
}

// pump forwards processed raw deltas to out until the raw stream ends. It
// returns nil on completion, the stream error on failure and an error
// wrapping core.ErrAborted when ctx was cancelled.
func pump[V any](ctx context.Context, raw *queue.Queue[Delta[any]], out *queue.Queue[V], process func(any) (V, bool)) error {
	it := raw.Iterator()
	for {
		d, err := it.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			if errors.Is(ctx.Err(), context.Canceled) {
				return fmt.Errorf("%w: %w", core.ErrAborted, context.Cause(ctx))
			}
			return err
		case d.IsError():
			if core.IsAbort(d.Err) {
				return fmt.Errorf("%w: %w", core.ErrAborted, d.Err)
			}
			return d.Err
		}

		if v, ok := process(d.Value); ok {
			if perr := out.Push(v); perr != nil {
				return perr
			}
		}
	}
}

// streamCall holds the bookkeeping of one call between start and finish.
type streamCall struct {
	functionType string
	input        any
	md           core.CallMetadata
	observers    []core.Observer
	logger       logging.Logger
}

// finish finalizes the metadata, emits call-finished and logs the outcome.
// It returns the finalized metadata.
func (c *streamCall) finish(status core.FinishStatus, rawOutput any, err error) core.CallMetadata {
	md := c.md
	md.FinishTimestamp = time.Now()
	md.Duration = md.FinishTimestamp.Sub(md.StartTimestamp)

	core.Dispatch(c.observers, core.NewCallFinishedEvent(md, c.input, status, rawOutput, err))

	if l, ok := c.logger.(*logging.ModelMeshLogger); ok {
		l.WithCall(md.RunID, md.CallID).LogModelCall(c.functionType, md.Model.String(), md.Tries, md.Duration, string(status), err)
		return md
	}

	args := []any{
		"call_id", md.CallID,
		"function_type", c.functionType,
		"model", md.Model.String(),
		"tries", md.Tries,
		"duration", md.Duration,
		"status", status,
	}
	if status == core.FinishFailure {
		c.logger.Error("Model call failed", append(args, "error", err)...)
	} else {
		c.logger.Debug("Model call finished", args...)
	}

	return md
}
