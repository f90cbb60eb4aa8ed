// Package lockout tracks failed authentication attempts per account and
// escalates lock durations across repeat episodes.
//
// # State machine
//
// Open -> Locked when the windowed failure counter reaches the threshold;
// Locked -> Open when the lock key's TTL lapses (no explicit transition is
// ever written). Each episode doubles the lock duration, capped by
// MaxDuration, and the episode count itself decays after LevelTTL.
//
// # What this package must NOT do
//
//   - Emit security events; goGuard does that around these calls.
//   - Reset escalation on success or manual unlock.
//   - Be imported outside the goGuard module.
package lockout
