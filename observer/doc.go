// Package observer provides core.Observer implementations that turn call
// lifecycle events into logs, Prometheus metrics (observer/metrics) and
// OpenTelemetry spans (observer/tracing).
//
// Observers are attached per call (model.WithObservers), per run
// (core.RunOptions.Observers) or per model (model.Settings.Observers).
package observer
