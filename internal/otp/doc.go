// Package otp implements the one-time-password store: binary at-rest
// records, an atomic Lua consume path, and an expiry purge.
//
// # Design
//
// One Redis key per (user, purpose). Save overwrites the key, which is the
// entire re-issue invalidation mechanism. Validation is a single script
// round-trip that checks expiry, consumption, and the attempt budget before
// comparing digests, then patches the record in place preserving its TTL.
// A matched record is tombstoned (consumed flag), not deleted, so replays
// answer not-found while the purge pass still sees the record.
//
// # What this package must NOT do
//
//   - Store or log plaintext codes; callers hand in SHA-256 digests.
//   - Use non-constant-time comparisons for secret matching.
//   - Emit events or enforce rate limits; orchestration lives in goGuard.
package otp
