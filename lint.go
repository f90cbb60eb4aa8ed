package goGuard

import (
	"fmt"
	"strings"
	"time"
)

/*
====================================
CONFIG LINT
====================================

Validate rejects configs that cannot work. Lint flags configs that work
but that a security review would question: loose budgets, long-lived
codes, unmetered issuance. Lint never mutates and never fails; callers
decide what to do with the findings (log them, or refuse to boot via
AsError).
*/

// LintSeverity ranks lint findings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one advisory finding about a valid but questionable
// configuration. Code is a stable machine-readable identifier.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintWarnings is the ordered result of a lint pass.
type LintWarnings []LintWarning

// Codes returns the warning codes in emission order.
func (ws LintWarnings) Codes() []string {
	codes := make([]string, 0, len(ws))
	for _, w := range ws {
		codes = append(codes, w.Code)
	}
	return codes
}

// BySeverity returns the warnings at or above min.
func (ws LintWarnings) BySeverity(min LintSeverity) LintWarnings {
	var out LintWarnings
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds the warnings at or above min into a single error, or nil
// when none qualify. Pair with LintHigh to refuse booting on findings
// that disable a protection outright.
func (ws LintWarnings) AsError(min LintSeverity) error {
	qualifying := ws.BySeverity(min)
	if len(qualifying) == 0 {
		return nil
	}
	parts := make([]string, 0, len(qualifying))
	for _, w := range qualifying {
		parts = append(parts, fmt.Sprintf("%s [%s]: %s", w.Code, w.Severity, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint reports advisory findings on a config that Validate accepts.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings

	warn := func(code string, severity LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{
			Code:     code,
			Severity: severity,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	rateActive := c.Rate.Default.Limit > 0
	for _, rule := range c.Rate.Rules {
		if rule.Limit > 0 {
			rateActive = true
			break
		}
	}
	if !rateActive {
		warn("rate_limits_disabled", LintHigh,
			"no rate rule carries a positive Limit; every action is unthrottled")
	}

	if !c.OTP.EnableIssueThrottle {
		warn("issue_throttle_disabled", LintHigh,
			"code issuance bypasses the rate limiter; delivery channels can be pumped at line speed")
	} else if rule, ok := c.Rate.Rules["otp_issue"]; (!ok || rule.Limit <= 0) && c.Rate.Default.Limit <= 0 {
		warn("issue_throttle_unmetered", LintHigh,
			"EnableIssueThrottle is on but neither an otp_issue rule nor the default rule carries a Limit")
	}

	if c.OTP.TTL > 15*time.Minute {
		warn("otp_ttl_long", LintWarn,
			"OTP TTL %s leaves codes valid unusually long; 15m or less is typical", c.OTP.TTL)
	}
	if c.OTP.CodeLength < 6 {
		warn("otp_code_short", LintWarn,
			"%d-character codes are guessable within a generous attempt budget; use 6 or more", c.OTP.CodeLength)
	}
	if c.OTP.MaxAttempts > 5 {
		warn("otp_attempts_generous", LintWarn,
			"MaxAttempts %d gives each code a wide guessing budget", c.OTP.MaxAttempts)
	}

	if c.Lockout.Threshold > 10 {
		warn("lockout_threshold_high", LintWarn,
			"Lockout Threshold %d tolerates many failures before locking", c.Lockout.Threshold)
	}
	if c.Lockout.BaseDuration < time.Minute {
		warn("lockout_base_short", LintWarn,
			"Lockout BaseDuration %s barely slows a guessing loop", c.Lockout.BaseDuration)
	}

	if c.IPBlock.BlockDuration < 10*time.Minute {
		warn("ipblock_duration_short", LintWarn,
			"IPBlock BlockDuration %s lets abusive addresses return quickly", c.IPBlock.BlockDuration)
	}

	if c.Events.RetentionDays < 30 {
		warn("events_retention_short", LintWarn,
			"RetentionDays %d keeps too little history for incident review", c.Events.RetentionDays)
	}
	if !c.Events.DropIfFull {
		warn("sink_backpressure_blocking", LintWarn,
			"DropIfFull is off; a stalled sink blocks event fanout")
	}

	if !c.Metrics.Enabled {
		warn("metrics_disabled", LintInfo,
			"metrics are off; operational counters will read zero")
	}
	if !c.ProductionMode {
		warn("dev_mode", LintInfo,
			"ProductionMode is off; Validate accepts lab-grade settings")
	}

	return ws
}
