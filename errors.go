package goGuard

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited rejects an action whose fixed-window budget is spent.
	// Usually carried inside a [RetryAfterError].
	ErrRateLimited = errors.New("rate limited")

	// ErrOTPNotFound means no code exists for the (user, purpose) pair:
	// never issued, already consumed, or purged.
	ErrOTPNotFound = errors.New("otp not found")

	// ErrOTPExpired means the code existed but its validity window passed.
	// The record is deleted opportunistically; the caller must re-issue.
	ErrOTPExpired = errors.New("otp expired")

	// ErrOTPMismatch means the candidate did not match the stored code.
	ErrOTPMismatch = errors.New("otp mismatch")

	// ErrOTPAttemptsExceeded means the attempt budget is spent; the code is
	// dead even for a correct candidate.
	ErrOTPAttemptsExceeded = errors.New("otp attempts exceeded")

	// ErrAccountLocked rejects operations for a locked account until the
	// lock lapses. Usually carried inside a [RetryAfterError].
	ErrAccountLocked = errors.New("account locked")

	// ErrIPBlocked rejects operations from a blocked source address.
	// Usually carried inside a [RetryAfterError].
	ErrIPBlocked = errors.New("ip blocked")

	// ErrStoreUnavailable means the keyed store cannot be reached. Security
	// checks fail closed on this error: callers must deny, not allow.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDeliveryUnavailable means no notification collaborator can serve
	// the requested channel.
	ErrDeliveryUnavailable = errors.New("delivery unavailable")

	// ErrInvalidInput rejects empty or malformed identifiers.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGuardNotReady rejects operations on a nil or unbuilt Guard.
	ErrGuardNotReady = errors.New("guard not ready")

	// ErrBuilderReused rejects a second Build on the same builder.
	ErrBuilderReused = errors.New("builder already used")

	// ErrRedisRequired rejects building without a Redis client.
	ErrRedisRequired = errors.New("redis client required")
)

// RetryAfterError wraps a retryable denial (rate limit, lockout, IP block)
// with the duration after which the caller may try again.
type RetryAfterError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", e.Err, e.RetryAfter)
}

func (e *RetryAfterError) Unwrap() error {
	return e.Err
}

// RetryAfter extracts the retry hint from an error chain.
func RetryAfter(err error) (time.Duration, bool) {
	var ra *RetryAfterError
	if errors.As(err, &ra) {
		return ra.RetryAfter, true
	}
	return 0, false
}

// genericDenial is what every throttle-class rejection looks like from the
// outside. One message for all three checks, so callers relaying it cannot
// be used to enumerate which control tripped for a given account or address.
const genericDenial = "too many attempts, please try again later"

// PublicMessage maps an error onto a string safe to show an end user.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrAccountLocked),
		errors.Is(err, ErrIPBlocked),
		errors.Is(err, ErrStoreUnavailable):
		return genericDenial
	case errors.Is(err, ErrOTPNotFound),
		errors.Is(err, ErrOTPExpired),
		errors.Is(err, ErrOTPMismatch),
		errors.Is(err, ErrOTPAttemptsExceeded):
		return "verification failed, request a new code"
	case errors.Is(err, ErrDeliveryUnavailable):
		return "delivery is temporarily unavailable"
	case errors.Is(err, ErrInvalidInput):
		return "invalid request"
	default:
		return "request failed"
	}
}
