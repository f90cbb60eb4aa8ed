// Package events implements the append-only security event log and the
// async sink fan-out built on top of it.
//
// # Components
//
//   - [Event]: structured security record (kind, severity, account, address, detail).
//   - [Log]: Redis sorted-set store: synchronous Append, bounded Query, score-range Purge.
//   - [Dispatcher]: buffered async relay copying appended events to external sinks.
//   - Sinks: [ChannelSink], [JSONWriterSink], [ZapSink], [KafkaSink], [NoOpSink].
//
// # Architecture boundaries
//
// The Log is the durable, ordered record; sinks are best-effort copies.
// Append failures must be recovered by the caller (degrade, never fail the
// triggering operation). Aggregation logic lives in internal/monitor, not
// here.
//
// # What this package must NOT do
//
//   - Decide which events to emit or suppress.
//   - Block a request path on sink delivery.
//   - Import goGuard or any sibling internal package.
package events
