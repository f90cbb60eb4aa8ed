// Package ipblock mirrors the account lockout mechanism for source
// addresses: a windowed abuse counter and a TTL block record, with
// thresholds configured independently of account lockout.
//
// Blocks are flat-duration; an address that keeps offending simply gets
// re-blocked when its next abuse burst crosses the threshold.
//
// # What this package must NOT do
//
//   - Emit security events; goGuard does that around these calls.
//   - Be imported outside the goGuard module.
package ipblock
