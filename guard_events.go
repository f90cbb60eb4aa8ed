package goGuard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrEthical07/goGuard/internal/events"
)

// AppendEvent records a caller-supplied event, for flows this library does
// not orchestrate itself (password changes, session lifecycle). Missing ID,
// timestamp, severity, and address are filled in. A storage failure is
// counted and logged but deliberately not returned: event logging must
// never break the flow that produced the event.
func (g *Guard) AppendEvent(ctx context.Context, event Event) error {
	if g == nil {
		return ErrGuardNotReady
	}
	if event.Kind == "" {
		return fmt.Errorf("%w: event kind required", ErrInvalidInput)
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = events.DefaultSeverity(event.Kind)
	}
	if event.Address == "" {
		event.Address = clientIPFromContext(ctx)
	}

	if err := g.eventLog.Append(ctx, event); err != nil {
		g.metricInc(MetricEventLogErrors)
		g.logger.Warn("security event append failed",
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
	} else {
		g.metricInc(MetricEventsAppended)
	}

	g.dispatcher.Emit(ctx, event)

	return nil
}

// QueryEvents reads from the log, newest first. Filter fields narrow the
// result; Offset and Limit paginate it. Reads are bounded by the configured
// MaxScan, so an unbounded query cannot pull the whole history into memory.
func (g *Guard) QueryEvents(ctx context.Context, filter EventFilter) ([]Event, error) {
	if g == nil {
		return nil, ErrGuardNotReady
	}

	evts, err := g.eventLog.Query(ctx, filter)
	if err != nil {
		return nil, g.storeErr("events_query", err)
	}

	return evts, nil
}

// PurgeEvents drops events older than the configured retention and returns
// how many went. Idempotent; meant for the cleanup scheduler.
func (g *Guard) PurgeEvents(ctx context.Context) (int64, error) {
	if g == nil {
		return 0, ErrGuardNotReady
	}

	cutoff := time.Now().AddDate(0, 0, -g.config.Events.RetentionDays)
	purged, err := g.eventLog.Purge(ctx, cutoff)
	if err != nil {
		return purged, g.storeErr("events_purge", err)
	}

	g.metricAdd(MetricPurgedEvents, uint64(purged))
	if purged > 0 {
		g.logger.Info("purged security events",
			zap.Int64("count", purged),
			zap.Time("cutoff", cutoff),
		)
	}

	return purged, nil
}
