// Package monitor holds the pure aggregation functions behind the
// monitoring facade: dashboard stats, the periodic security report, and
// the suspicious-activity heuristics.
//
// Everything here is a pure function over an event slice the caller has
// already read. Keeping I/O out makes the aggregations trivially testable
// and keeps the single bounded event read in one place (goGuard).
//
// # What this package must NOT do
//
//   - Touch Redis or any clock.
//   - Import goGuard or sibling internal packages other than events.
package monitor
