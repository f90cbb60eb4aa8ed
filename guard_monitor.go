package goGuard

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goGuard/internal/events"
	"github.com/MrEthical07/goGuard/internal/monitor"
)

// Stats aggregates the event log over the trailing window into dashboard
// counters. A zero window uses the configured default. One bounded read,
// pure aggregation; calling it does not write anything.
func (g *Guard) Stats(ctx context.Context, window time.Duration) (Stats, error) {
	if g == nil {
		return Stats{}, ErrGuardNotReady
	}
	if window <= 0 {
		window = g.config.Monitor.StatsWindow
	}

	now := time.Now().UTC()
	evts, err := g.eventLog.Since(ctx, now.Add(-window))
	if err != nil {
		return Stats{}, g.storeErr("stats_read", err)
	}

	return monitor.BuildStats(monitor.StatsInput{
		Window:      window,
		GeneratedAt: now,
		Events:      evts,
		TopN:        g.config.Monitor.TopN,
	}), nil
}

// Report builds the periodic security summary for [since, until): event
// aggregates, top offenders, suspicion findings, plus the accounts locked
// and addresses blocked right now. Zero bounds default to the trailing
// seven days.
func (g *Guard) Report(ctx context.Context, since, until time.Time) (SecurityReport, error) {
	if g == nil {
		return SecurityReport{}, ErrGuardNotReady
	}
	if until.IsZero() {
		until = time.Now().UTC()
	}
	if since.IsZero() {
		since = until.AddDate(0, 0, -7)
	}

	evts, err := g.eventLog.Query(ctx, events.Filter{Since: since, Until: until})
	if err != nil {
		return SecurityReport{}, g.storeErr("report_read", err)
	}

	report := SecurityReport{
		Report: monitor.BuildReport(monitor.ReportInput{
			Since:     since,
			Until:     until,
			Events:    evts,
			TopN:      g.config.Monitor.TopN,
			Suspicion: g.suspicionConfig(),
		}),
	}

	if report.LockedNow, err = g.lockouts.ListLocked(ctx, 0); err != nil {
		return report, g.storeErr("report_locked", err)
	}
	if report.BlockedNow, err = g.ipBlocks.ListBlocked(ctx, 0); err != nil {
		return report, g.storeErr("report_blocked", err)
	}

	return report, nil
}

// ScanSuspicious runs the fan-out heuristics over the trailing window and
// appends one suspicious_activity event per finding. Findings repeat on
// every scan while the pattern persists; consumers dedupe on pattern and
// subject, not event ID.
func (g *Guard) ScanSuspicious(ctx context.Context, window time.Duration) ([]Finding, error) {
	if g == nil {
		return nil, ErrGuardNotReady
	}
	if window <= 0 {
		window = g.config.Monitor.StatsWindow
	}

	evts, err := g.eventLog.Since(ctx, time.Now().UTC().Add(-window))
	if err != nil {
		return nil, g.storeErr("suspicious_read", err)
	}

	findings := monitor.FindSuspicious(evts, g.suspicionConfig())
	for _, finding := range findings {
		g.emitEvent(ctx, EventSuspiciousActivity, false, finding.Account, finding.Address, nil, map[string]string{
			"pattern": finding.Pattern,
			"detail":  finding.Detail,
		})
	}

	return findings, nil
}

// RunCleanup is one idempotent maintenance pass: purge expired one-time
// codes, purge events past retention. Partial failures are joined; the
// stats report whatever did get purged. Run it from a scheduler (see
// [Sweeper]), never from request paths.
func (g *Guard) RunCleanup(ctx context.Context) (CleanupStats, error) {
	if g == nil {
		return CleanupStats{}, ErrGuardNotReady
	}

	g.metricInc(MetricPurgeRuns)

	var stats CleanupStats
	var errOTP, errEvents error

	stats.OTPsPurged, errOTP = g.PurgeExpiredOTPs(ctx)
	stats.EventsPurged, errEvents = g.PurgeEvents(ctx)

	if err := errors.Join(errOTP, errEvents); err != nil {
		return stats, err
	}

	g.logger.Debug("cleanup pass finished",
		zap.Int64("otps_purged", stats.OTPsPurged),
		zap.Int64("events_purged", stats.EventsPurged),
	)

	return stats, nil
}

func (g *Guard) suspicionConfig() monitor.SuspicionConfig {
	return monitor.SuspicionConfig{
		AccountAddressFanout: g.config.Monitor.AccountAddressFanout,
		AddressAccountFanout: g.config.Monitor.AddressAccountFanout,
		AddressRateTrips:     g.config.Monitor.AddressRateTrips,
	}
}
