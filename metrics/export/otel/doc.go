// Package otel provides OpenTelemetry metric bindings for goGuard counters
// and histograms.
//
// [NewOTelExporter] registers an Int64ObservableCounter per goGuard metric
// and Int64ObservableGauge instruments per histogram bucket. A single
// callback reads [goGuard.Guard.MetricsSnapshot] on each collection cycle,
// so collection cost is one snapshot regardless of instrument count.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate guard state.
package otel
