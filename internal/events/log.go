package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRedisUnavailable = errors.New("event log redis unavailable")
	ErrEncode           = errors.New("event encode failed")
)

// Log is the append-only security event store: one sorted set scored by
// unix-millisecond timestamps, members are JSON-encoded events.
type Log struct {
	redis   redis.UniversalClient
	key     string
	maxScan int64
}

// NewLog creates the event log under the given key prefix. maxScan bounds
// how many events a single Query or aggregation read may pull.
func NewLog(redisClient redis.UniversalClient, prefix string, maxScan int) *Log {
	if maxScan <= 0 {
		maxScan = 10_000
	}
	return &Log{
		redis:   redisClient,
		key:     prefix + ":ev",
		maxScan: int64(maxScan),
	}
}

// Append writes one event. Ordering comes from the timestamp score;
// uniqueness of members comes from the event ID.
func (l *Log) Append(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}

	member := redis.Z{
		Score:  float64(event.Timestamp.UnixMilli()),
		Member: data,
	}
	if err := l.redis.ZAdd(ctx, l.key, member).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Query returns events newest-first within the filter's time bounds,
// field-filtered client-side, then sliced by Offset/Limit. Reads are
// capped at maxScan members regardless of the requested limit.
func (l *Log) Query(ctx context.Context, filter Filter) ([]Event, error) {
	raw, err := l.fetch(ctx, filter.Since, filter.Until)
	if err != nil {
		return nil, err
	}

	matched := make([]Event, 0, len(raw))
	for _, data := range raw {
		var e Event
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			continue
		}
		if filter.Matches(e) {
			matched = append(matched, e)
		}
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

// Since returns up to maxScan events newer than the cutoff, newest-first.
// Aggregations (stats, reports, suspicious-activity scans) read through
// this single bounded path.
func (l *Log) Since(ctx context.Context, since time.Time) ([]Event, error) {
	return l.Query(ctx, Filter{Since: since})
}

// Purge removes all events strictly older than the cutoff and returns how
// many were deleted. Safe to repeat; a second call with no new data is a
// no-op.
func (l *Log) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	max := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)

	removed, err := l.redis.ZRemRangeByScore(ctx, l.key, "-inf", max).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return removed, nil
}

// Len reports the current number of stored events.
func (l *Log) Len(ctx context.Context) (int64, error) {
	n, err := l.redis.ZCard(ctx, l.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

func (l *Log) fetch(ctx context.Context, since, until time.Time) ([]string, error) {
	min := "-inf"
	if !since.IsZero() {
		min = strconv.FormatInt(since.UnixMilli(), 10)
	}
	max := "+inf"
	if !until.IsZero() {
		max = strconv.FormatInt(until.UnixMilli(), 10)
	}

	raw, err := l.redis.ZRevRangeByScore(ctx, l.key, &redis.ZRangeBy{
		Min:   min,
		Max:   max,
		Count: l.maxScan,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return raw, nil
}
