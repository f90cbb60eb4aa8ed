package goGuard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/goGuard/internal/monitor"
)

func seedEvent(t *testing.T, guard *Guard, kind EventKind, account, address string, age time.Duration) {
	t.Helper()
	err := guard.AppendEvent(context.Background(), Event{
		Kind:      kind,
		Account:   account,
		Address:   address,
		Timestamp: time.Now().UTC().Add(-age),
	})
	if err != nil {
		t.Fatalf("AppendEvent %s failed: %v", kind, err)
	}
}

func TestStatsAggregatesEvents(t *testing.T) {
	guard, _, done := buildTestGuard(t, guardTestConfig())
	defer done()

	seedEvent(t, guard, EventLoginFailed, "alice", "192.0.2.1", time.Minute)
	seedEvent(t, guard, EventLoginFailed, "bob", "192.0.2.1", time.Minute)
	seedEvent(t, guard, EventOTPFailed, "carol", "192.0.2.2", time.Minute)
	seedEvent(t, guard, EventAccountLocked, "alice", "", time.Minute)
	seedEvent(t, guard, EventIPBlocked, "", "192.0.2.3", time.Minute)
	// Outside the window; must not count.
	seedEvent(t, guard, EventLoginFailed, "old", "192.0.2.9", 2*time.Hour)

	stats, err := guard.Stats(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.Window != time.Hour {
		t.Fatalf("expected window to echo, got %v", stats.Window)
	}
	if stats.GeneratedAt.IsZero() {
		t.Fatal("expected GeneratedAt to be set")
	}
	if stats.LoginFailures != 2 {
		t.Fatalf("expected 2 login failures, got %d", stats.LoginFailures)
	}
	if stats.OTPFailures != 1 {
		t.Fatalf("expected 1 otp failure, got %d", stats.OTPFailures)
	}
	if stats.AccountsLocked != 1 {
		t.Fatalf("expected 1 lock, got %d", stats.AccountsLocked)
	}
	if stats.IPsBlocked != 1 {
		t.Fatalf("expected 1 block, got %d", stats.IPsBlocked)
	}
	if stats.EventsByKind[EventLoginFailed] != 2 {
		t.Fatalf("expected 2 login_failed by kind, got %d", stats.EventsByKind[EventLoginFailed])
	}
	if len(stats.TopAddresses) == 0 {
		t.Fatal("expected top addresses")
	}
	if top := stats.TopAddresses[0]; top.Address != "192.0.2.1" || top.Count != 2 {
		t.Fatalf("expected 192.0.2.1 with 2 offenses on top, got %+v", top)
	}
}

func TestStatsZeroWindowUsesConfigured(t *testing.T) {
	cfg := guardTestConfig()
	cfg.Monitor.StatsWindow = 30 * time.Minute

	guard, _, done := buildTestGuard(t, cfg)
	defer done()

	seedEvent(t, guard, EventLoginFailed, "alice", "192.0.2.1", time.Minute)
	seedEvent(t, guard, EventLoginFailed, "alice", "192.0.2.1", 45*time.Minute)

	stats, err := guard.Stats(context.Background(), 0)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Window != 30*time.Minute {
		t.Fatalf("expected configured window, got %v", stats.Window)
	}
	if stats.LoginFailures != 1 {
		t.Fatalf("expected 1 failure inside the window, got %d", stats.LoginFailures)
	}
}

func TestScanSuspiciousAccountFanout(t *testing.T) {
	guard, _, done := buildTestGuard(t, guardTestConfig())
	defer done()

	// Same account failed from three distinct addresses.
	for i := 1; i <= 3; i++ {
		seedEvent(t, guard, EventLoginFailed, "alice", fmt.Sprintf("192.0.2.%d", i), time.Minute)
	}

	findings, err := guard.ScanSuspicious(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("ScanSuspicious failed: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d: %+v", len(findings), findings)
	}
	finding := findings[0]
	if finding.Pattern != monitor.PatternAccountFanout {
		t.Fatalf("expected account fanout pattern, got %q", finding.Pattern)
	}
	if finding.Account != "alice" {
		t.Fatalf("expected account alice, got %q", finding.Account)
	}
	if finding.Count != 3 {
		t.Fatalf("expected count 3, got %d", finding.Count)
	}

	// Each finding leaves a suspicious_activity event in the log.
	evts, err := guard.QueryEvents(context.Background(), EventFilter{Kinds: []EventKind{EventSuspiciousActivity}})
	if err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	if len(evts) != 1 {
		t.Fatalf("expected 1 suspicious_activity event, got %d", len(evts))
	}
	if evts[0].Detail["pattern"] != monitor.PatternAccountFanout {
		t.Fatalf("expected pattern detail, got %q", evts[0].Detail["pattern"])
	}
}

func TestScanSuspiciousAddressPatterns(t *testing.T) {
	guard, _, done := buildTestGuard(t, guardTestConfig())
	defer done()

	// One address probing five distinct accounts.
	for i := 1; i <= 5; i++ {
		seedEvent(t, guard, EventLoginFailed, fmt.Sprintf("user%d", i), "198.51.100.7", time.Minute)
	}
	// Another address tripping rate limits ten times.
	for i := 0; i < 10; i++ {
		seedEvent(t, guard, EventRateLimitExceeded, "", "198.51.100.8", time.Minute)
	}

	findings, err := guard.ScanSuspicious(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("ScanSuspicious failed: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d: %+v", len(findings), findings)
	}

	// Ordering is deterministic: pattern, then account, then address.
	if findings[0].Pattern != monitor.PatternAddressFanout || findings[0].Address != "198.51.100.7" {
		t.Fatalf("expected address fanout first, got %+v", findings[0])
	}
	if findings[0].Count != 5 {
		t.Fatalf("expected 5 probed accounts, got %d", findings[0].Count)
	}
	if findings[1].Pattern != monitor.PatternAddressTrips || findings[1].Address != "198.51.100.8" {
		t.Fatalf("expected rate trips second, got %+v", findings[1])
	}
	if findings[1].Count != 10 {
		t.Fatalf("expected 10 trips, got %d", findings[1].Count)
	}
}

func TestScanSuspiciousBelowThresholdsQuiet(t *testing.T) {
	guard, _, done := buildTestGuard(t, guardTestConfig())
	defer done()

	seedEvent(t, guard, EventLoginFailed, "alice", "192.0.2.1", time.Minute)
	seedEvent(t, guard, EventLoginFailed, "alice", "192.0.2.2", time.Minute)

	findings, err := guard.ScanSuspicious(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("ScanSuspicious failed: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected no findings below thresholds, got %+v", findings)
	}
}

func TestReportIncludesLiveState(t *testing.T) {
	cfg := guardTestConfig()
	guard, _, done := buildTestGuard(t, cfg)
	defer done()

	ctx := context.Background()
	for i := 0; i < cfg.Lockout.Threshold; i++ {
		if _, err := guard.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("failure %d: %v", i+1, err)
		}
	}
	if _, err := guard.BlockIP(ctx, "203.0.113.50", time.Hour, "manual"); err != nil {
		t.Fatalf("BlockIP failed: %v", err)
	}

	report, err := guard.Report(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	if report.Until.Sub(report.Since) != 7*24*time.Hour {
		t.Fatalf("expected default seven-day bounds, got %v", report.Until.Sub(report.Since))
	}
	if report.TotalEvents == 0 {
		t.Fatal("expected events in the report")
	}
	if report.ByKind[EventLoginFailed] != int64(cfg.Lockout.Threshold) {
		t.Fatalf("expected %d login_failed, got %d", cfg.Lockout.Threshold, report.ByKind[EventLoginFailed])
	}
	if report.BySeverity[SeverityHigh] == 0 {
		t.Fatal("expected high-severity events from lock and block")
	}
	if len(report.LockedNow) != 1 || report.LockedNow[0].Account != "alice" {
		t.Fatalf("expected alice in LockedNow, got %+v", report.LockedNow)
	}
	if len(report.BlockedNow) != 1 || report.BlockedNow[0].Address != "203.0.113.50" {
		t.Fatalf("expected 203.0.113.50 in BlockedNow, got %+v", report.BlockedNow)
	}
}

func TestRunCleanupPurgesExpired(t *testing.T) {
	cfg := guardTestConfig()
	cfg.OTP.TTL = 200 * time.Millisecond

	guard, _, done := buildTestGuard(t, cfg)
	defer done()

	ctx := context.Background()
	if _, err := guard.IssueOTP(ctx, "alice", "login", ChannelEmail); err != nil {
		t.Fatalf("IssueOTP failed: %v", err)
	}
	seedEvent(t, guard, EventLoginFailed, "ancient", "", time.Duration(cfg.Events.RetentionDays+1)*24*time.Hour)

	time.Sleep(250 * time.Millisecond)

	stats, err := guard.RunCleanup(ctx)
	if err != nil {
		t.Fatalf("RunCleanup failed: %v", err)
	}
	if stats.OTPsPurged != 1 {
		t.Fatalf("expected 1 purged code, got %d", stats.OTPsPurged)
	}
	if stats.EventsPurged != 1 {
		t.Fatalf("expected 1 purged event, got %d", stats.EventsPurged)
	}

	again, err := guard.RunCleanup(ctx)
	if err != nil {
		t.Fatalf("second RunCleanup failed: %v", err)
	}
	if again.OTPsPurged != 0 || again.EventsPurged != 0 {
		t.Fatalf("expected idempotent cleanup, got %+v", again)
	}
}
