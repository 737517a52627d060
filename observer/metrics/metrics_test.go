package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/modelmesh/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c, err := NewCollector(func(o *Options) { o.Registerer = reg })
	require.NoError(t, err)
	return c, reg
}

func TestCollector_RecordsCalls(t *testing.T) {
	c, _ := newTestCollector(t)

	c.OnEvent(testutil.NewEventBuilder().Started().Build())
	c.OnEvent(testutil.NewEventBuilder().Started().Build())
	assert.InDelta(t, 2, promtest.ToFloat64(c.callsInFlight.WithLabelValues("mock", "mock-text")), 0)

	c.OnEvent(testutil.NewEventBuilder().Tries(3).Duration(2 * time.Second).Build())
	c.OnEvent(testutil.NewEventBuilder().Failed(errors.New("boom")).Build())

	assert.InDelta(t, 0, promtest.ToFloat64(c.callsInFlight.WithLabelValues("mock", "mock-text")), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(c.callsTotal.WithLabelValues("stream-text", "mock", "mock-text", "success")), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(c.callsTotal.WithLabelValues("stream-text", "mock", "mock-text", "failure")), 0)
	assert.Equal(t, 2, promtest.CollectAndCount(c.callDuration))
}

func TestCollector_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewCollector(func(o *Options) { o.Registerer = reg })
	require.NoError(t, err)
	second, err := NewCollector(func(o *Options) { o.Registerer = reg })
	require.NoError(t, err)

	first.OnEvent(testutil.NewEventBuilder().Build())
	second.OnEvent(testutil.NewEventBuilder().Build())

	assert.InDelta(t, 2, promtest.ToFloat64(first.callsTotal.WithLabelValues("stream-text", "mock", "mock-text", "success")), 0)
}

func TestCollector_Gather(t *testing.T) {
	c, reg := newTestCollector(t)
	c.OnEvent(testutil.NewEventBuilder().Aborted().Build())

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["modelmesh_model_calls_total"])
	assert.True(t, names["modelmesh_model_call_duration_seconds"])
}
