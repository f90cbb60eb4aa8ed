// Package middleware exposes HTTP adapters for goGuard's request-level
// checks: source-address blocking and per-address rate limiting.
//
// # Handlers
//
//   - [BlockCheck]: rejects blocked addresses with 403 and enriches the
//     request context with client address and user agent.
//   - [RateLimit]: fixed-window throttle per (address, action), 429 with a
//     Retry-After header on denial.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Guard calls. It makes no
// security decisions itself; pass or reject comes from the Guard, and
// backend failures deny (503), never allow.
//
// # What this package must NOT do
//
//   - Reveal which control rejected a request; response bodies stay
//     uniform per status code.
//   - Access Redis directly (the Guard owns all I/O).
//   - Trust proxy headers beyond taking the first X-Forwarded-For hop.
package middleware
