// Package rate provides the Redis-backed fixed-window limiter behind every
// throttle decision in goGuard.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on the first hit, PTTL
// as retry-after. Keys live under {prefix}:rl:{actor}:{action}. A window
// begins with whichever caller lands the first increment; there is no
// sliding interpolation.
//
// # What this package must NOT do
//
//   - Decide consequences of a denial (events, errors); goGuard does.
//   - Be imported outside the goGuard module.
package rate
