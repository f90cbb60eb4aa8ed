package goGuard

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// RecordFailure counts one failed authentication attempt against the
// account. Crossing the configured threshold locks the account with a
// doubling, capped duration; each lock episode within the escalation memory
// doubles the next one. Failures against an already-locked account are not
// accumulated.
func (g *Guard) RecordFailure(ctx context.Context, account string) (LockStatus, error) {
	if g == nil {
		return LockStatus{}, ErrGuardNotReady
	}
	if account == "" {
		return LockStatus{}, fmt.Errorf("%w: account required", ErrInvalidInput)
	}

	status, err := g.lockouts.RecordFailure(ctx, account)
	if err != nil {
		return LockStatus{}, g.storeErr("lockout_failure", err)
	}

	g.metricInc(MetricLoginFailures)
	g.emitEvent(ctx, EventLoginFailed, false, account, "", nil, map[string]string{
		"failures": strconv.FormatInt(status.Failures, 10),
	})

	if status.JustLocked {
		g.metricInc(MetricAccountLockouts)
		g.emitEvent(ctx, EventAccountLocked, false, account, "", ErrAccountLocked, map[string]string{
			"level": strconv.Itoa(status.Level),
			"until": status.Until.UTC().Format(time.RFC3339),
		})
	}

	return LockStatus{
		Locked:   status.Locked,
		Until:    status.Until,
		Level:    status.Level,
		Failures: status.Failures,
	}, nil
}

// RecordSuccess clears the account's failure counter. The escalation
// level is kept, so an account that keeps oscillating still locks longer
// each episode until the level memory lapses.
func (g *Guard) RecordSuccess(ctx context.Context, account string) error {
	if g == nil {
		return ErrGuardNotReady
	}
	if account == "" {
		return fmt.Errorf("%w: account required", ErrInvalidInput)
	}

	if err := g.lockouts.RecordSuccess(ctx, account); err != nil {
		return g.storeErr("lockout_success", err)
	}

	g.metricInc(MetricLoginSuccesses)
	g.emitEvent(ctx, EventLoginSuccess, true, account, "", nil, nil)

	return nil
}

// IsLocked reports the account's lockout state. Callers gate authentication
// on it; a backend failure reads as an error, never as "unlocked".
func (g *Guard) IsLocked(ctx context.Context, account string) (LockStatus, error) {
	if g == nil {
		return LockStatus{}, ErrGuardNotReady
	}
	if account == "" {
		return LockStatus{}, fmt.Errorf("%w: account required", ErrInvalidInput)
	}

	status, err := g.lockouts.Status(ctx, account)
	if err != nil {
		return LockStatus{}, g.storeErr("lockout_status", err)
	}

	return LockStatus{
		Locked:   status.Locked,
		Until:    status.Until,
		Level:    status.Level,
		Failures: status.Failures,
	}, nil
}

// UnlockAccount removes a lock before its TTL lapses, for support flows.
// The escalation level survives on purpose: repeat offenders do not reset
// their history by getting unlocked.
func (g *Guard) UnlockAccount(ctx context.Context, account string) error {
	if g == nil {
		return ErrGuardNotReady
	}
	if account == "" {
		return fmt.Errorf("%w: account required", ErrInvalidInput)
	}

	if err := g.lockouts.ForceUnlock(ctx, account); err != nil {
		return g.storeErr("lockout_unlock", err)
	}

	g.metricInc(MetricManualUnlocks)
	g.emitEvent(ctx, EventAccountUnlocked, true, account, "", nil, nil)

	return nil
}

// LockedAccounts lists currently locked accounts, up to limit (0 means no
// cap). SCAN-based; intended for dashboards, not hot paths.
func (g *Guard) LockedAccounts(ctx context.Context, limit int) ([]LockedAccount, error) {
	if g == nil {
		return nil, ErrGuardNotReady
	}

	locked, err := g.lockouts.ListLocked(ctx, limit)
	if err != nil {
		return nil, g.storeErr("lockout_list", err)
	}

	return locked, nil
}
