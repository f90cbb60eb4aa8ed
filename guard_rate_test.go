package goGuard

import (
	"context"
	"errors"
	"testing"
	"time"
)

func rateTestConfig() Config {
	cfg := guardTestConfig()
	cfg.Rate.Rules = map[string]RateRule{
		"login":       {Limit: 2, Window: time.Minute},
		"api":         {Limit: 1, Window: time.Minute},
		"api:special": {Limit: 3, Window: time.Minute},
	}
	cfg.Rate.Default = RateRule{Limit: 2, Window: time.Minute}
	return cfg
}

func TestAllowWithinBudget(t *testing.T) {
	guard, _, done := buildTestGuard(t, rateTestConfig())
	defer done()

	ctx := context.Background()
	first, err := guard.Allow(ctx, "alice", "login")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !first.Allowed {
		t.Fatal("expected first hit to be allowed")
	}
	if first.Remaining != 1 {
		t.Fatalf("expected 1 remaining, got %d", first.Remaining)
	}

	second, err := guard.Allow(ctx, "alice", "login")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !second.Allowed || second.Remaining != 0 {
		t.Fatalf("expected last allowed hit with 0 remaining, got %+v", second)
	}
}

func TestAllowDeniesOverLimit(t *testing.T) {
	cfg := rateTestConfig()
	guard, mr, done := buildTestGuard(t, cfg)
	defer done()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := guard.Allow(ctx, "alice", "login"); err != nil {
			t.Fatalf("hit %d failed: %v", i+1, err)
		}
	}

	denied, err := guard.Allow(ctx, "alice", "login")
	if err != nil {
		t.Fatalf("denied hit returned error: %v", err)
	}
	if denied.Allowed {
		t.Fatal("expected denial past the limit")
	}
	if denied.RetryAfter <= 0 || denied.RetryAfter > time.Minute {
		t.Fatalf("expected retry hint within the window, got %v", denied.RetryAfter)
	}

	// The window lapsing resets the budget.
	mr.FastForward(time.Minute + time.Second)
	reset, err := guard.Allow(ctx, "alice", "login")
	if err != nil {
		t.Fatalf("Allow after window failed: %v", err)
	}
	if !reset.Allowed {
		t.Fatal("expected fresh window to allow")
	}
}

func TestAllowIsolatesActors(t *testing.T) {
	guard, _, done := buildTestGuard(t, rateTestConfig())
	defer done()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = guard.Allow(ctx, "alice", "login")
	}

	decision, err := guard.Allow(ctx, "bob", "login")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected bob to have his own budget")
	}
}

func TestAllowExactRuleBeatsPrefix(t *testing.T) {
	guard, _, done := buildTestGuard(t, rateTestConfig())
	defer done()

	ctx := context.Background()

	// "api:special" is pinned at 3 even though "api" allows only 1.
	for i := 0; i < 3; i++ {
		decision, err := guard.Allow(ctx, "alice", "api:special")
		if err != nil {
			t.Fatalf("hit %d failed: %v", i+1, err)
		}
		if !decision.Allowed {
			t.Fatalf("hit %d: expected pinned rule budget, got denial", i+1)
		}
	}

	// "api:other" inherits the "api" prefix rule of 1.
	if _, err := guard.Allow(ctx, "alice", "api:other"); err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	decision, err := guard.Allow(ctx, "alice", "api:other")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected prefix rule to deny the second hit")
	}
}

func TestAllowUnknownActionUsesDefault(t *testing.T) {
	guard, _, done := buildTestGuard(t, rateTestConfig())
	defer done()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := guard.Allow(ctx, "alice", "export"); err != nil {
			t.Fatalf("hit %d failed: %v", i+1, err)
		}
	}

	decision, err := guard.Allow(ctx, "alice", "export")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected default rule to deny the third hit")
	}
}

func TestAllowZeroRuleIsUnthrottled(t *testing.T) {
	cfg := guardTestConfig()
	cfg.Rate.Rules = map[string]RateRule{}
	cfg.Rate.Default = RateRule{}

	guard, _, done := buildTestGuard(t, cfg)
	defer done()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		decision, err := guard.Allow(ctx, "alice", "anything")
		if err != nil {
			t.Fatalf("hit %d failed: %v", i+1, err)
		}
		if !decision.Allowed {
			t.Fatalf("hit %d: expected unthrottled action to allow", i+1)
		}
	}
}

func TestAllowInputValidation(t *testing.T) {
	guard, _, done := buildTestGuard(t, rateTestConfig())
	defer done()

	if _, err := guard.Allow(context.Background(), "", "login"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty actor, got %v", err)
	}
	if _, err := guard.Allow(context.Background(), "alice", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty action, got %v", err)
	}
}

func TestClearRateLimits(t *testing.T) {
	guard, _, done := buildTestGuard(t, rateTestConfig())
	defer done()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = guard.Allow(ctx, "alice", "login")
	}
	_, _ = guard.Allow(ctx, "bob", "api")

	cleared, err := guard.ClearRateLimits(ctx)
	if err != nil {
		t.Fatalf("ClearRateLimits failed: %v", err)
	}
	if cleared != 2 {
		t.Fatalf("expected 2 windows cleared, got %d", cleared)
	}

	// The wipe reopens exhausted budgets.
	decision, err := guard.Allow(ctx, "alice", "login")
	if err != nil {
		t.Fatalf("Allow after clear failed: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected cleared window to allow")
	}

	again, err := guard.ClearRateLimits(ctx)
	if err != nil {
		t.Fatalf("second clear failed: %v", err)
	}
	if again != 1 {
		t.Fatalf("expected only the fresh window, got %d", again)
	}
}

func TestRateRulesCopiedAtBuild(t *testing.T) {
	cfg := guardTestConfig()
	cfg.Rate.Rules = map[string]RateRule{
		"login": {Limit: 1, Window: time.Minute},
	}

	mr, rdb := newTestRedis(t)
	defer mr.Close()

	builder := New().WithConfig(cfg).WithRedis(rdb)

	// Mutating the caller's map after WithConfig must not leak into the guard.
	cfg.Rate.Rules["login"] = RateRule{Limit: 100, Window: time.Minute}

	guard, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer guard.Close()

	ctx := context.Background()
	if _, err := guard.Allow(ctx, "alice", "login"); err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	decision, err := guard.Allow(ctx, "alice", "login")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected the limit captured at WithConfig time to apply")
	}
}
