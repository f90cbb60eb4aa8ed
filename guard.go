package goGuard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrEthical07/goGuard/internal/events"
	"github.com/MrEthical07/goGuard/internal/ipblock"
	"github.com/MrEthical07/goGuard/internal/lockout"
	"github.com/MrEthical07/goGuard/internal/otp"
	"github.com/MrEthical07/goGuard/internal/rate"
)

// Guard is the account-security facade: one-time codes, fixed-window rate
// limits, account lockouts, IP blocks, and the append-only event log behind
// a single API. Construct it with [New]; a Guard is safe for concurrent use
// and holds no per-request state.
type Guard struct {
	config Config

	otpStore    *otp.Store
	rateLimiter *rate.Limiter
	lockouts    *lockout.Manager
	ipBlocks    *ipblock.Manager
	eventLog    *events.Log
	dispatcher  *events.Dispatcher

	metrics *Metrics
	logger  *zap.Logger
	sender  Sender
}

// Close drains the event dispatcher. Redis and any Kafka writers are owned
// by the caller and stay open.
func (g *Guard) Close() {
	if g == nil {
		return
	}
	if g.dispatcher != nil {
		g.dispatcher.Close()
	}
}

// EventsDropped reports how many events the dispatcher discarded because
// sinks could not keep up. The Redis log is written synchronously and is
// not affected by sink back-pressure.
func (g *Guard) EventsDropped() uint64 {
	if g == nil || g.dispatcher == nil {
		return 0
	}
	return g.dispatcher.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (g *Guard) MetricsSnapshot() MetricsSnapshot {
	if g == nil || g.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return g.metrics.Snapshot()
}

func (g *Guard) metricInc(id MetricID) {
	if g == nil || g.metrics == nil {
		return
	}
	g.metrics.Inc(id)
}

func (g *Guard) metricAdd(id MetricID, n uint64) {
	if g == nil || g.metrics == nil {
		return
	}
	g.metrics.Add(id, n)
}

func (g *Guard) observeLatency(id MetricID, d time.Duration) {
	if g == nil || g.metrics == nil {
		return
	}
	g.metrics.Observe(id, d)
}

// emitEvent records one security event: synchronously into the Redis log,
// asynchronously to the sinks. A failed log write is counted and logged but
// never fails the operation that produced the event.
func (g *Guard) emitEvent(ctx context.Context, kind EventKind, success bool, account, address string, opErr error, detail map[string]string) {
	if g == nil || g.eventLog == nil {
		return
	}

	if address == "" {
		address = clientIPFromContext(ctx)
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		merged := make(map[string]string, len(detail)+1)
		for k, v := range detail {
			merged[k] = v
		}
		merged["user_agent"] = ua
		detail = merged
	}

	event := Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Severity:  events.DefaultSeverity(kind),
		Account:   account,
		Address:   address,
		Success:   success,
		Detail:    detail,
	}
	if code := eventErrorCode(opErr); code != "" {
		event.Error = code
	}

	if err := g.eventLog.Append(ctx, event); err != nil {
		g.metricInc(MetricEventLogErrors)
		g.logger.Warn("security event append failed",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	} else {
		g.metricInc(MetricEventsAppended)
	}

	g.dispatcher.Emit(ctx, event)
}

// storeErr translates a backend failure into the fail-closed sentinel.
func (g *Guard) storeErr(op string, err error) error {
	g.metricInc(MetricStoreErrors)
	g.logger.Error("redis operation failed",
		zap.String("op", op),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// eventErrorCode maps an operation error onto the short code stored in the
// event record. Codes are stable strings; dashboards key on them.
func eventErrorCode(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrOTPNotFound):
		return "otp_not_found"
	case errors.Is(err, ErrOTPExpired):
		return "otp_expired"
	case errors.Is(err, ErrOTPMismatch):
		return "otp_mismatch"
	case errors.Is(err, ErrOTPAttemptsExceeded):
		return "otp_attempts_exceeded"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrIPBlocked):
		return "ip_blocked"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrDeliveryUnavailable):
		return "delivery_unavailable"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal_error"
	}
}
