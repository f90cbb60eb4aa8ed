package goGuard

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Allow counts one hit against the (actor, action) fixed window and decides
// it. The hit is counted whether or not it is allowed; there is no separate
// reserve step to race against. Actor is opaque: an account, an address, an
// API key. Composite actions like "otp_issue:login" inherit the rule of the
// segment before the colon unless pinned exactly.
//
// A denied decision is not an error. The error return is reserved for
// backend failures, which deny (fail closed).
func (g *Guard) Allow(ctx context.Context, actor, action string) (RateDecision, error) {
	if g == nil {
		return RateDecision{}, ErrGuardNotReady
	}
	if actor == "" || action == "" {
		return RateDecision{}, fmt.Errorf("%w: actor and action required", ErrInvalidInput)
	}

	decision, err := g.rateLimiter.Allow(ctx, actor, action)
	if err != nil {
		return RateDecision{}, g.storeErr("rate_allow", err)
	}

	if !decision.Allowed {
		g.metricInc(MetricRateDenied)
		g.emitEvent(ctx, EventRateLimitExceeded, false, actor, "", ErrRateLimited, map[string]string{
			"action": action,
		})
		return RateDecision{Allowed: false, RetryAfter: decision.RetryAfter}, nil
	}

	g.metricInc(MetricRateAllowed)
	return RateDecision{Allowed: true, Remaining: decision.Remaining}, nil
}

// ClearRateLimits drops every rate window and returns how many were
// cleared. Maintenance hook for the cleanup scheduler; request paths must
// never call it, counters expire on their own.
func (g *Guard) ClearRateLimits(ctx context.Context) (int64, error) {
	if g == nil {
		return 0, ErrGuardNotReady
	}

	cleared, err := g.rateLimiter.ClearAll(ctx)
	if err != nil {
		return int64(cleared), g.storeErr("rate_clear", err)
	}

	if cleared > 0 {
		g.logger.Info("cleared rate windows", zap.Int("count", cleared))
	}

	return int64(cleared), nil
}
