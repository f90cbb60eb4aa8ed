// Package goGuard provides an identity-verification and account-security
// core: hashed one-time codes with atomic attempt accounting, fixed-window
// rate limits, escalating account lockouts, source-address blocks, and an
// append-only security event log, all backed by Redis.
//
// The package is designed for concurrent server workloads: Guard methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goGuard is the public surface. It exposes [Guard], [Builder], [Config],
// and value types (IssuedOTP, LockStatus, SecurityReport, etc.). All
// internal coordination (record encoding, window counting, lock
// transitions, event dispatch) lives under internal/ and is never exported
// directly; the root re-exports the few value types callers need.
//
// # Failure policy
//
// Security checks fail closed. When Redis cannot answer, IsLocked,
// IsBlocked, Allow, and ValidateOTP return ErrStoreUnavailable and the
// caller must deny. The one deliberate exception is event logging, which is
// best-effort: a failed append is counted and logged but never fails the
// operation that produced the event.
//
// # What this package must NOT do
//
//   - Store or log one-time codes in plaintext; only SHA-256 digests are
//     persisted, and comparisons are constant-time.
//   - Expose Redis clients, internal stores, or record encodings in its
//     public API.
//   - Distinguish rate limits, lockouts, and blocks in user-facing output;
//     PublicMessage collapses all three to one retry-later message.
package goGuard
