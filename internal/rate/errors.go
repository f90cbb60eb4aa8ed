package rate

import "errors"

// ErrRedisUnavailable wraps any store failure; callers must treat it as a
// deny (fail closed).
var ErrRedisUnavailable = errors.New("rate limiter redis unavailable")
