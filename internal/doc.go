// Package internal contains helper utilities that are intentionally private
// to goGuard, currently secure code generation and hashing.
//
// # Sub-packages
//
//   - events: append-only security event log, async sink dispatch
//   - ipblock: per-address abuse counters and TTL blocks
//   - lockout: per-account failure counters and escalating locks
//   - monitor: pure stats/report/suspicion aggregation
//   - otp: one-time-password records and atomic consume
//   - rate: Redis-backed fixed-window limiter primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public goGuard API other than through
//     explicit aliases in the root package.
//   - Be imported by any package outside the goGuard module.
package internal
