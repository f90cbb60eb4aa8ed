package events

import (
	"time"
)

// Kind enumerates security-relevant event types.
type Kind string

const (
	KindLoginSuccess       Kind = "login_success"
	KindLoginFailed        Kind = "login_failed"
	KindAccountLocked      Kind = "account_locked"
	KindAccountUnlocked    Kind = "account_manually_unlocked"
	KindPasswordChanged    Kind = "password_changed"
	KindOTPIssued          Kind = "otp_issued"
	KindOTPValidated       Kind = "otp_validated"
	KindOTPFailed          Kind = "otp_failed"
	KindRateLimitExceeded  Kind = "rate_limit_exceeded"
	KindIPBlocked          Kind = "ip_blocked"
	KindIPUnblocked        Kind = "ip_unblocked"
	KindSuspiciousActivity Kind = "suspicious_activity"
	KindSessionCreated     Kind = "session_created"
	KindSessionTerminated  Kind = "session_terminated"
)

// Severity classifies events for reporting and alert routing.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DefaultSeverity returns the severity an event kind carries unless the
// emitter overrides it.
func DefaultSeverity(kind Kind) Severity {
	switch kind {
	case KindLoginFailed, KindOTPFailed, KindRateLimitExceeded:
		return SeverityMedium
	case KindAccountLocked, KindIPBlocked, KindSuspiciousActivity:
		return SeverityHigh
	case KindAccountUnlocked, KindIPUnblocked, KindPasswordChanged:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Event is the canonical security event model shared by the log, the
// dispatcher, and the root API.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Kind      Kind              `json:"kind"`
	Severity  Severity          `json:"severity"`
	Account   string            `json:"account,omitempty"`
	Address   string            `json:"address,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// Filter selects events for Query. Zero fields match everything.
type Filter struct {
	Kinds   []Kind
	Account string
	Address string
	Since   time.Time
	Until   time.Time
	Offset  int
	Limit   int
}

// Matches reports whether the event passes the field filters. Time bounds
// are applied store-side and are not re-checked here.
func (f Filter) Matches(e Event) bool {
	if f.Account != "" && e.Account != f.Account {
		return false
	}
	if f.Address != "" && e.Address != f.Address {
		return false
	}
	if len(f.Kinds) > 0 {
		ok := false
		for _, k := range f.Kinds {
			if e.Kind == k {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
