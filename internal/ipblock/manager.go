package ipblock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any store failure; callers must treat it as
// blocked (fail closed).
var ErrRedisUnavailable = errors.New("ipblock redis unavailable")

// Config tunes abuse counting per source address. Address thresholds are
// looser than account thresholds on purpose: one address behind NAT may
// serve many legitimate users.
type Config struct {
	Threshold     int           // abuse events within AbuseWindow that trigger a block
	AbuseWindow   time.Duration // rolling window for the abuse counter
	BlockDuration time.Duration // automatic block length
}

// Status describes an address's block state at read time.
type Status struct {
	Blocked bool
	Until   time.Time
	Reason  string
	Events  int64

	// JustBlocked is set only by the RecordAbuse call that placed the
	// block; SETNX losers observe the block with JustBlocked false.
	JustBlocked bool
}

// BlockedAddress is one row of the live-block listing.
type BlockedAddress struct {
	Address string    `json:"address"`
	Until   time.Time `json:"until"`
	Reason  string    `json:"reason"`
	Events  int64     `json:"events"`
}

type blockRecord struct {
	Reason    string `json:"reason"`
	Events    int64  `json:"events"`
	BlockedAt int64  `json:"blocked_at"`
}

// Manager tracks abuse per source address and blocks offenders with TTLs.
// Two keys per address: a windowed abuse counter and the block record,
// whose TTL is the block.
type Manager struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

func New(redisClient redis.UniversalClient, prefix string, cfg Config) *Manager {
	if prefix == "" {
		prefix = "gg"
	}
	return &Manager{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

func (m *Manager) abuseKey(address string) string { return m.prefix + ":ia:" + address }
func (m *Manager) blockKey(address string) string { return m.prefix + ":ib:" + address }

// RecordAbuse counts one abusive event from the address and blocks it once
// the windowed counter reaches the threshold.
func (m *Manager) RecordAbuse(ctx context.Context, address, reason string) (Status, error) {
	status, err := m.Status(ctx, address)
	if err != nil {
		return Status{}, err
	}
	if status.Blocked {
		return status, nil
	}

	count, err := m.redis.Incr(ctx, m.abuseKey(address)).Result()
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 && m.config.AbuseWindow > 0 {
		if err := m.redis.Expire(ctx, m.abuseKey(address), m.config.AbuseWindow).Err(); err != nil {
			return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count < int64(m.config.Threshold) {
		return Status{Events: count}, nil
	}

	return m.autoBlock(ctx, address, reason, count)
}

func (m *Manager) autoBlock(ctx context.Context, address, reason string, events int64) (Status, error) {
	record := blockRecord{
		Reason:    reason,
		Events:    events,
		BlockedAt: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	ok, err := m.redis.SetNX(ctx, m.blockKey(address), data, m.config.BlockDuration).Result()
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return m.Status(ctx, address)
	}

	if err := m.redis.Del(ctx, m.abuseKey(address)).Err(); err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return Status{
		Blocked:     true,
		Until:       time.Now().Add(m.config.BlockDuration),
		Reason:      reason,
		Events:      events,
		JustBlocked: true,
	}, nil
}

// Block places or overwrites a block unconditionally (the manual override).
// A zero duration falls back to the configured block length.
func (m *Manager) Block(ctx context.Context, address string, duration time.Duration, reason string) (Status, error) {
	if duration <= 0 {
		duration = m.config.BlockDuration
	}

	record := blockRecord{
		Reason:    reason,
		BlockedAt: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if err := m.redis.Set(ctx, m.blockKey(address), data, duration).Err(); err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return Status{Blocked: true, Until: time.Now().Add(duration), Reason: reason}, nil
}

// Unblock lifts a block and clears the abuse counter.
func (m *Manager) Unblock(ctx context.Context, address string) error {
	if err := m.redis.Del(ctx, m.blockKey(address), m.abuseKey(address)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Status reads the block state; lapsed blocks read as missing keys.
func (m *Manager) Status(ctx context.Context, address string) (Status, error) {
	data, err := m.redis.Get(ctx, m.blockKey(address)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Status{}, nil
		}
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	ttl, err := m.redis.PTTL(ctx, m.blockKey(address)).Result()
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl < 0 {
		return Status{}, nil
	}

	var record blockRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return Status{Blocked: true, Until: time.Now().Add(ttl)}, nil
	}

	return Status{
		Blocked: true,
		Until:   time.Now().Add(ttl),
		Reason:  record.Reason,
		Events:  record.Events,
	}, nil
}

// ListBlocked returns up to limit currently blocked addresses.
func (m *Manager) ListBlocked(ctx context.Context, limit int) ([]BlockedAddress, error) {
	pattern := m.prefix + ":ib:*"
	trim := m.prefix + ":ib:"
	var out []BlockedAddress

	var cursor uint64
	for {
		keys, next, err := m.redis.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		for _, key := range keys {
			address := strings.TrimPrefix(key, trim)
			status, err := m.Status(ctx, address)
			if err != nil {
				return out, err
			}
			if !status.Blocked {
				continue
			}
			out = append(out, BlockedAddress{
				Address: address,
				Until:   status.Until,
				Reason:  status.Reason,
				Events:  status.Events,
			})
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return out, nil
}
