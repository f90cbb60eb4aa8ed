package goGuard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func BenchmarkAllow(b *testing.B) {
	guard, cleanup := newBenchmarkGuard(b)
	defer cleanup()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		decision, err := guard.Allow(context.Background(), "alice", "api")
		if err != nil {
			b.Fatalf("allow failed: %v", err)
		}
		if !decision.Allowed {
			b.Fatal("budget unexpectedly spent")
		}
	}
}

func BenchmarkIssueOTP(b *testing.B) {
	guard, cleanup := newBenchmarkGuard(b)
	defer cleanup()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := guard.IssueOTP(context.Background(), "alice", "login", ChannelEmail); err != nil {
			b.Fatalf("issue failed: %v", err)
		}
	}
}

func BenchmarkIssueAndValidateOTP(b *testing.B) {
	guard, cleanup := newBenchmarkGuard(b)
	defer cleanup()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		issued, err := guard.IssueOTP(context.Background(), "alice", "login", ChannelEmail)
		if err != nil {
			b.Fatalf("issue failed: %v", err)
		}
		if err := guard.ValidateOTP(context.Background(), "alice", "login", issued.Code); err != nil {
			b.Fatalf("validate failed: %v", err)
		}
	}
}

func BenchmarkIsLocked(b *testing.B) {
	guard, cleanup := newBenchmarkGuard(b)
	defer cleanup()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		status, err := guard.IsLocked(context.Background(), "alice")
		if err != nil {
			b.Fatalf("status failed: %v", err)
		}
		if status.Locked {
			b.Fatal("account unexpectedly locked")
		}
	}
}

func newBenchmarkGuard(tb testing.TB) (*Guard, func()) {
	tb.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		tb.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := DefaultConfig()
	cfg.OTP.EnableIssueThrottle = false
	cfg.Rate.Rules = map[string]RateRule{
		"api": {Limit: 1 << 50, Window: time.Hour},
	}
	cfg.Rate.Default = RateRule{Limit: 1 << 50, Window: time.Hour}
	cfg.Metrics.Enabled = false

	guard, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build()
	if err != nil {
		tb.Fatalf("Build failed: %v", err)
	}

	return guard, func() {
		guard.Close()
		_ = rdb.Close()
		mr.Close()
	}
}
