package goGuard

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SweeperConfig sets the cadences for the background maintenance loops.
// CleanupEvery defaults to one hour; the other loops are disabled at zero.
type SweeperConfig struct {
	// CleanupEvery runs RunCleanup: expired code purge plus event
	// retention.
	CleanupEvery time.Duration

	// ClearRateEvery wipes all rate windows. Most deployments leave this
	// off and let counters expire on their own TTLs.
	ClearRateEvery time.Duration

	// ScanEvery runs the suspicion heuristics over ScanWindow.
	ScanEvery  time.Duration
	ScanWindow time.Duration

	// ReportEvery builds a SecurityReport covering the cadence interval
	// and hands it to OnReport, or logs a summary when OnReport is nil.
	ReportEvery time.Duration
	OnReport    func(SecurityReport)
}

// Sweeper drives the guard's periodic maintenance. It owns no state beyond
// its tickers; every pass is idempotent, so overlapping deployments running
// sweepers against the same Redis do duplicate work but no damage.
type Sweeper struct {
	guard  *Guard
	config SweeperConfig
}

func NewSweeper(guard *Guard, cfg SweeperConfig) *Sweeper {
	if cfg.CleanupEvery <= 0 {
		cfg.CleanupEvery = time.Hour
	}
	return &Sweeper{
		guard:  guard,
		config: cfg,
	}
}

// Run blocks until ctx is canceled. Failures inside a pass are logged and
// the loop keeps its cadence; a broken Redis must not kill the scheduler.
func (s *Sweeper) Run(ctx context.Context) error {
	if s == nil || s.guard == nil {
		return ErrGuardNotReady
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.loop(ctx, s.config.CleanupEvery, "cleanup", func(ctx context.Context) error {
			_, err := s.guard.RunCleanup(ctx)
			return err
		})
	})

	if s.config.ClearRateEvery > 0 {
		group.Go(func() error {
			return s.loop(ctx, s.config.ClearRateEvery, "clear_rate", func(ctx context.Context) error {
				_, err := s.guard.ClearRateLimits(ctx)
				return err
			})
		})
	}

	if s.config.ScanEvery > 0 {
		group.Go(func() error {
			return s.loop(ctx, s.config.ScanEvery, "scan_suspicious", func(ctx context.Context) error {
				findings, err := s.guard.ScanSuspicious(ctx, s.config.ScanWindow)
				if err != nil {
					return err
				}
				if len(findings) > 0 {
					s.guard.logger.Warn("suspicious activity detected",
						zap.Int("findings", len(findings)),
					)
				}
				return nil
			})
		})
	}

	if s.config.ReportEvery > 0 {
		group.Go(func() error {
			return s.loop(ctx, s.config.ReportEvery, "report", func(ctx context.Context) error {
				until := time.Now().UTC()
				report, err := s.guard.Report(ctx, until.Add(-s.config.ReportEvery), until)
				if err != nil {
					return err
				}
				if s.config.OnReport != nil {
					s.config.OnReport(report)
					return nil
				}
				s.guard.logger.Info("security report",
					zap.Int64("total_events", report.TotalEvents),
					zap.Int("findings", len(report.Findings)),
					zap.Int("locked_accounts", len(report.LockedNow)),
					zap.Int("blocked_addresses", len(report.BlockedNow)),
				)
				return nil
			})
		})
	}

	return group.Wait()
}

func (s *Sweeper) loop(ctx context.Context, every time.Duration, name string, pass func(context.Context) error) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := pass(ctx); err != nil {
				s.guard.logger.Warn("sweep pass failed",
					zap.String("sweep", name),
					zap.Error(err),
				)
			}
		}
	}
}
