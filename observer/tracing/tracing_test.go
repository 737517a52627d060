package tracing

import (
	"errors"
	"testing"

	"github.com/hupe1980/modelmesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestObserver() (*Observer, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return New(func(o *Options) { o.Tracer = tp.Tracer("test") }), sr
}

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestObserver_SuccessSpan(t *testing.T) {
	o, sr := newTestObserver()

	b := testutil.NewEventBuilder().CallID("c-1").Model("openai", "gpt-4o-mini").Run("r-1").Tries(2)
	o.OnEvent(b.Started().Build())
	assert.Empty(t, sr.Ended())
	require.Len(t, sr.Started(), 1)

	o.OnEvent(testutil.NewEventBuilder().CallID("c-1").Model("openai", "gpt-4o-mini").Run("r-1").Tries(2).Build())

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, "modelmesh.stream-text", span.Name())
	assert.Equal(t, trace.SpanKindClient, span.SpanKind())
	assert.Equal(t, codes.Ok, span.Status().Code)

	v, ok := attr(span.Attributes(), "gen_ai.system")
	require.True(t, ok)
	assert.Equal(t, "openai", v.AsString())

	v, ok = attr(span.Attributes(), "modelmesh.tries")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.AsInt64())

	v, ok = attr(span.Attributes(), "run.id")
	require.True(t, ok)
	assert.Equal(t, "r-1", v.AsString())
}

func TestObserver_FailureSpan(t *testing.T) {
	o, sr := newTestObserver()

	o.OnEvent(testutil.NewEventBuilder().Started().CallID("c-2").Build())
	o.OnEvent(testutil.NewEventBuilder().CallID("c-2").Failed(errors.New("boom")).Build())

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1, "error recorded as span event")
}

func TestObserver_AbortLeavesStatusUnset(t *testing.T) {
	o, sr := newTestObserver()

	o.OnEvent(testutil.NewEventBuilder().Started().CallID("c-3").Build())
	o.OnEvent(testutil.NewEventBuilder().CallID("c-3").Aborted().Build())

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	v, _ := attr(spans[0].Attributes(), "modelmesh.status")
	assert.Equal(t, "abort", v.AsString())
}

func TestObserver_FinishWithoutStart(t *testing.T) {
	o, sr := newTestObserver()

	o.OnEvent(testutil.NewEventBuilder().CallID("late").Build())

	require.Len(t, sr.Ended(), 1)
	assert.Empty(t, o.inflight)
}
