// Package tracing records model calls as OpenTelemetry spans.
package tracing

import (
	"context"
	"sync"

	"github.com/hupe1980/modelmesh/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/hupe1980/modelmesh/observer/tracing"

// Options configure an Observer.
type Options struct {
	// Tracer creates the spans. Default: the global tracer provider.
	Tracer trace.Tracer
	// Parent is the context new spans are parented under.
	Parent context.Context //nolint:containedctx // parent of every call span
}

// Observer is a core.Observer that opens a client span when a call starts
// and ends it when the call finishes. It is safe for concurrent use.
type Observer struct {
	tracer trace.Tracer
	parent context.Context //nolint:containedctx // parent of every call span

	mu       sync.Mutex
	inflight map[string]trace.Span // call id → span
}

// New creates a tracing Observer.
func New(optFns ...func(o *Options)) *Observer {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(instrumentationName)
	}
	if opts.Parent == nil {
		opts.Parent = context.Background()
	}

	return &Observer{
		tracer:   opts.Tracer,
		parent:   opts.Parent,
		inflight: make(map[string]trace.Span),
	}
}

// OnEvent implements core.Observer.
func (o *Observer) OnEvent(ev core.Event) {
	//exhaustive:ignore
	switch ev.Type {
	case core.EventCallStarted:
		o.start(ev)
	case core.EventCallFinished:
		o.finish(ev)
	}
}

func (o *Observer) start(ev core.Event) {
	md := ev.Metadata
	_, span := o.tracer.Start(o.parent, "modelmesh."+md.FunctionType,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(md.StartTimestamp),
		trace.WithAttributes(startAttributes(md)...),
	)

	o.mu.Lock()
	o.inflight[md.CallID] = span
	o.mu.Unlock()
}

func (o *Observer) finish(ev core.Event) {
	md := ev.Metadata

	o.mu.Lock()
	span, ok := o.inflight[md.CallID]
	delete(o.inflight, md.CallID)
	o.mu.Unlock()

	// A finish without a start (observer attached mid-call) still yields a span.
	if !ok {
		_, span = o.tracer.Start(o.parent, "modelmesh."+md.FunctionType,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithTimestamp(md.StartTimestamp),
			trace.WithAttributes(startAttributes(md)...),
		)
	}

	span.SetAttributes(
		attribute.String("modelmesh.status", string(ev.Status)),
		attribute.Int("modelmesh.tries", md.Tries),
		attribute.Int64("modelmesh.duration_ms", md.Duration.Milliseconds()),
	)

	switch ev.Status {
	case core.FinishFailure:
		if ev.Error != nil {
			span.RecordError(ev.Error)
			span.SetStatus(codes.Error, ev.Error.Error())
		} else {
			span.SetStatus(codes.Error, "model call failed")
		}
	case core.FinishSuccess:
		span.SetStatus(codes.Ok, "")
	}

	span.End(trace.WithTimestamp(md.FinishTimestamp))
}

func startAttributes(md core.CallMetadata) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.system", md.Model.Provider),
		attribute.String("gen_ai.request.model", md.Model.Name),
		attribute.String("modelmesh.call_id", md.CallID),
		attribute.String("modelmesh.function_type", md.FunctionType),
	}
	if md.FunctionID != "" {
		attrs = append(attrs, attribute.String("modelmesh.function_id", md.FunctionID))
	}
	if md.RunID != "" {
		attrs = append(attrs, attribute.String("run.id", md.RunID))
	}
	if md.SessionID != "" {
		attrs = append(attrs, attribute.String("session.id", md.SessionID))
	}
	if md.UserID != "" {
		attrs = append(attrs, attribute.String("user.id", md.UserID))
	}
	return attrs
}
