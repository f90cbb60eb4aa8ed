package goGuard

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLockout_ThresholdTriggersLock(t *testing.T) {
	cfg := guardTestConfig() // Threshold 3
	guard, _, done := buildTestGuard(t, cfg)
	defer done()

	ctx := context.Background()

	// Failures below the threshold only accumulate.
	for i := 0; i < cfg.Lockout.Threshold-1; i++ {
		status, err := guard.RecordFailure(ctx, "alice")
		if err != nil {
			t.Fatalf("failure %d: %v", i+1, err)
		}
		if status.Locked {
			t.Fatalf("failure %d: locked before threshold", i+1)
		}
		if status.Failures != int64(i+1) {
			t.Fatalf("failure %d: expected count %d, got %d", i+1, i+1, status.Failures)
		}
	}

	// The threshold failure places the lock.
	status, err := guard.RecordFailure(ctx, "alice")
	if err != nil {
		t.Fatalf("threshold failure: %v", err)
	}
	if !status.Locked {
		t.Fatal("expected lock at threshold")
	}
	if status.Level != 1 {
		t.Fatalf("expected first episode level 1, got %d", status.Level)
	}
	if !status.Until.After(time.Now()) {
		t.Fatal("expected lock expiry in the future")
	}
}

func TestLockout_IsLockedReflectsAndExpires(t *testing.T) {
	cfg := guardTestConfig() // BaseDuration 1m
	guard, mr, done := buildTestGuard(t, cfg)
	defer done()

	ctx := context.Background()
	for i := 0; i < cfg.Lockout.Threshold; i++ {
		if _, err := guard.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("failure %d: %v", i+1, err)
		}
	}

	status, err := guard.IsLocked(ctx, "alice")
	if err != nil {
		t.Fatalf("IsLocked failed: %v", err)
	}
	if !status.Locked {
		t.Fatal("expected locked account")
	}

	// The lock lives in the key TTL; once it lapses the account reads clear.
	mr.FastForward(cfg.Lockout.BaseDuration + time.Second)
	status, err = guard.IsLocked(ctx, "alice")
	if err != nil {
		t.Fatalf("IsLocked after expiry failed: %v", err)
	}
	if status.Locked {
		t.Fatal("expected lock to lapse with its TTL")
	}
}

func TestLockout_SuccessResetsFailureCounter(t *testing.T) {
	cfg := guardTestConfig()
	guard, _, done := buildTestGuard(t, cfg)
	defer done()

	ctx := context.Background()
	for i := 0; i < cfg.Lockout.Threshold-1; i++ {
		if _, err := guard.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("failure %d: %v", i+1, err)
		}
	}

	if err := guard.RecordSuccess(ctx, "alice"); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}

	// A full new run of failures is needed to lock.
	for i := 0; i < cfg.Lockout.Threshold-1; i++ {
		status, err := guard.RecordFailure(ctx, "alice")
		if err != nil {
			t.Fatalf("failure %d after reset: %v", i+1, err)
		}
		if status.Locked {
			t.Fatalf("failure %d after reset: locked too early", i+1)
		}
	}
	status, err := guard.RecordFailure(ctx, "alice")
	if err != nil {
		t.Fatalf("threshold failure after reset: %v", err)
	}
	if !status.Locked {
		t.Fatal("expected lock at threshold after reset")
	}
}

func TestLockout_EscalationExtendsSecondEpisode(t *testing.T) {
	cfg := guardTestConfig() // BaseDuration 1m, MaxDuration 1h
	guard, mr, done := buildTestGuard(t, cfg)
	defer done()

	ctx := context.Background()
	lock := func() LockStatus {
		t.Helper()
		var status LockStatus
		var err error
		for i := 0; i < cfg.Lockout.Threshold; i++ {
			status, err = guard.RecordFailure(ctx, "alice")
			if err != nil {
				t.Fatalf("failure %d: %v", i+1, err)
			}
		}
		if !status.Locked {
			t.Fatal("expected lock after threshold failures")
		}
		return status
	}

	first := lock()
	firstLeft := time.Until(first.Until)

	// Let the first lock lapse, then trip a second episode.
	mr.FastForward(cfg.Lockout.BaseDuration + time.Second)

	second := lock()
	secondLeft := time.Until(second.Until)

	if second.Level != 2 {
		t.Fatalf("expected escalation level 2, got %d", second.Level)
	}
	if secondLeft < firstLeft+30*time.Second {
		t.Fatalf("expected second episode to run longer: first %v, second %v", firstLeft, secondLeft)
	}
}

func TestLockout_UnlockRestoresAccessKeepsEscalation(t *testing.T) {
	cfg := guardTestConfig()
	guard, _, done := buildTestGuard(t, cfg)
	defer done()

	ctx := context.Background()
	for i := 0; i < cfg.Lockout.Threshold; i++ {
		if _, err := guard.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("failure %d: %v", i+1, err)
		}
	}

	if err := guard.UnlockAccount(ctx, "alice"); err != nil {
		t.Fatalf("UnlockAccount failed: %v", err)
	}

	status, err := guard.IsLocked(ctx, "alice")
	if err != nil {
		t.Fatalf("IsLocked failed: %v", err)
	}
	if status.Locked {
		t.Fatal("expected account unlocked")
	}

	// The escalation memory survives the manual unlock: the next episode
	// starts at level 2.
	for i := 0; i < cfg.Lockout.Threshold; i++ {
		status, err = guard.RecordFailure(ctx, "alice")
		if err != nil {
			t.Fatalf("failure %d after unlock: %v", i+1, err)
		}
	}
	if !status.Locked {
		t.Fatal("expected second lock")
	}
	if status.Level != 2 {
		t.Fatalf("expected level 2 after unlock, got %d", status.Level)
	}
}

func TestLockout_LockedAccountDoesNotAccumulate(t *testing.T) {
	cfg := guardTestConfig()
	guard, _, done := buildTestGuard(t, cfg)
	defer done()

	ctx := context.Background()
	for i := 0; i < cfg.Lockout.Threshold; i++ {
		if _, err := guard.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("failure %d: %v", i+1, err)
		}
	}

	status, err := guard.RecordFailure(ctx, "alice")
	if err != nil {
		t.Fatalf("failure while locked: %v", err)
	}
	if !status.Locked {
		t.Fatal("expected locked status")
	}

	// After a manual unlock a single failure must not re-lock.
	if err := guard.UnlockAccount(ctx, "alice"); err != nil {
		t.Fatalf("UnlockAccount failed: %v", err)
	}
	status, err = guard.RecordFailure(ctx, "alice")
	if err != nil {
		t.Fatalf("failure after unlock: %v", err)
	}
	if status.Locked {
		t.Fatal("expected fresh failure counter after unlock")
	}
	if status.Failures != 1 {
		t.Fatalf("expected 1 failure, got %d", status.Failures)
	}
}

func TestLockout_LockedAccountsListing(t *testing.T) {
	cfg := guardTestConfig()
	guard, _, done := buildTestGuard(t, cfg)
	defer done()

	ctx := context.Background()
	for _, account := range []string{"alice", "bob"} {
		for i := 0; i < cfg.Lockout.Threshold; i++ {
			if _, err := guard.RecordFailure(ctx, account); err != nil {
				t.Fatalf("failure for %s: %v", account, err)
			}
		}
	}

	locked, err := guard.LockedAccounts(ctx, 0)
	if err != nil {
		t.Fatalf("LockedAccounts failed: %v", err)
	}
	if len(locked) != 2 {
		t.Fatalf("expected 2 locked accounts, got %d", len(locked))
	}
	seen := map[string]bool{}
	for _, row := range locked {
		seen[row.Account] = true
		if !row.Until.After(time.Now()) {
			t.Fatalf("account %s: expected future expiry", row.Account)
		}
	}
	if !seen["alice"] || !seen["bob"] {
		t.Fatalf("expected alice and bob in listing, got %+v", locked)
	}

	capped, err := guard.LockedAccounts(ctx, 1)
	if err != nil {
		t.Fatalf("LockedAccounts with limit failed: %v", err)
	}
	if len(capped) != 1 {
		t.Fatalf("expected limit to cap the listing, got %d", len(capped))
	}
}

func TestLockout_EmitsEvents(t *testing.T) {
	cfg := guardTestConfig()
	guard, _, done := buildTestGuard(t, cfg)
	defer done()

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	for i := 0; i < cfg.Lockout.Threshold; i++ {
		if _, err := guard.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("failure %d: %v", i+1, err)
		}
	}

	lockedEvents, err := guard.QueryEvents(ctx, EventFilter{Kinds: []EventKind{EventAccountLocked}})
	if err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	if len(lockedEvents) != 1 {
		t.Fatalf("expected exactly one lock event, got %d", len(lockedEvents))
	}
	event := lockedEvents[0]
	if event.Account != "alice" {
		t.Fatalf("expected account alice, got %q", event.Account)
	}
	if event.Address != "203.0.113.7" {
		t.Fatalf("expected context address on event, got %q", event.Address)
	}
	if event.Detail["level"] != "1" {
		t.Fatalf("expected level detail, got %q", event.Detail["level"])
	}

	failures, err := guard.QueryEvents(ctx, EventFilter{Kinds: []EventKind{EventLoginFailed}})
	if err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	if len(failures) != cfg.Lockout.Threshold {
		t.Fatalf("expected %d failure events, got %d", cfg.Lockout.Threshold, len(failures))
	}
}

func TestLockout_InputValidation(t *testing.T) {
	guard, _, done := buildTestGuard(t, guardTestConfig())
	defer done()

	ctx := context.Background()
	if _, err := guard.RecordFailure(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := guard.RecordSuccess(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := guard.IsLocked(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := guard.UnlockAccount(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
