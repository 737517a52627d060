// Package metrics records model call events as Prometheus metrics.
package metrics

import (
	"errors"

	"github.com/hupe1980/modelmesh/core"
	"github.com/prometheus/client_golang/prometheus"
)

// Options configure a Collector.
type Options struct {
	// Namespace prefixes every metric name. Default: "modelmesh".
	Namespace string
	// Registerer receives the metrics. Default: prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	// DurationBuckets override the call duration histogram buckets.
	DurationBuckets []float64
}

// Collector is a core.Observer that records call counts, latencies, retry
// attempts and in-flight calls.
type Collector struct {
	callsTotal    *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	callTries     *prometheus.HistogramVec
	callsInFlight *prometheus.GaugeVec
}

// NewCollector creates a Collector and registers its metrics. Metrics that
// are already registered with an identical description are reused.
func NewCollector(optFns ...func(o *Options)) (*Collector, error) {
	opts := Options{
		Namespace:       "modelmesh",
		Registerer:      prometheus.DefaultRegisterer,
		DurationBuckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	c := &Collector{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Name:      "model_calls_total",
				Help:      "Total number of model calls by terminal status",
			},
			[]string{"function_type", "provider", "model", "status"}, // status: success, failure, abort
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: opts.Namespace,
				Name:      "model_call_duration_seconds",
				Help:      "Duration of model calls from start until the stream finished, in seconds",
				Buckets:   opts.DurationBuckets,
			},
			[]string{"function_type", "provider", "model", "status"},
		),
		callTries: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: opts.Namespace,
				Name:      "model_call_tries",
				Help:      "Connection attempts per model call",
				Buckets:   []float64{1, 2, 3, 5, 8},
			},
			[]string{"provider", "model"},
		),
		callsInFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: opts.Namespace,
				Name:      "model_calls_in_flight",
				Help:      "Number of model calls currently running",
			},
			[]string{"provider", "model"},
		),
	}

	var err error
	c.callsTotal = register(opts.Registerer, c.callsTotal, &err)
	c.callDuration = register(opts.Registerer, c.callDuration, &err)
	c.callTries = register(opts.Registerer, c.callTries, &err)
	c.callsInFlight = register(opts.Registerer, c.callsInFlight, &err)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, errp *error) C {
	if *errp != nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		*errp = err
	}
	return c
}

// OnEvent implements core.Observer.
func (c *Collector) OnEvent(ev core.Event) {
	md := ev.Metadata
	provider, model := md.Model.Provider, md.Model.Name

	//exhaustive:ignore
	switch ev.Type {
	case core.EventCallStarted:
		c.callsInFlight.WithLabelValues(provider, model).Inc()
	case core.EventCallFinished:
		status := string(ev.Status)
		c.callsInFlight.WithLabelValues(provider, model).Dec()
		c.callsTotal.WithLabelValues(md.FunctionType, provider, model, status).Inc()
		c.callDuration.WithLabelValues(md.FunctionType, provider, model, status).Observe(md.Duration.Seconds())
		if md.Tries > 0 {
			c.callTries.WithLabelValues(provider, model).Observe(float64(md.Tries))
		}
	}
}
