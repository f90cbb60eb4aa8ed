package lockout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any store failure; callers must treat it as
// locked (fail closed).
var ErrRedisUnavailable = errors.New("lockout redis unavailable")

// Config tunes failure counting and lock escalation.
type Config struct {
	Threshold    int           // failures within FailWindow that trigger a lock
	FailWindow   time.Duration // rolling window for the failure counter
	BaseDuration time.Duration // first lock duration
	MaxDuration  time.Duration // escalation ceiling
	MaxLevel     int           // escalation level ceiling
	LevelTTL     time.Duration // how long escalation memory outlives the last lock
}

// Status describes an account's lockout state at read time.
type Status struct {
	Locked   bool
	Until    time.Time
	Level    int   // lock episodes counted within LevelTTL
	Failures int64 // failures accumulated in the current window

	// JustLocked is set only by the RecordFailure call that placed the
	// lock. Racing callers that lose the SETNX observe the lock with
	// JustLocked false.
	JustLocked bool
}

// LockedAccount is one row of the live-lock listing.
type LockedAccount struct {
	Account string    `json:"account"`
	Until   time.Time `json:"until"`
	Level   int       `json:"level"`
}

// Manager tracks consecutive authentication failures per account and locks
// accounts with doubling, capped durations. Three keys per account: a
// windowed failure counter, the lock itself (its TTL is the lock), and the
// escalation level, which survives unlocks until LevelTTL lapses.
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

func (m *Manager) failKey(account string) string  { return m.prefix + ":lf:" + account }
func (m *Manager) lockKey(account string) string  { return m.prefix + ":lk:" + account }
func (m *Manager) levelKey(account string) string { return m.prefix + ":ll:" + account }

// RecordFailure counts one failed attempt. Crossing the threshold locks the
// account for the current escalation tier and resets the failure counter.
// Concurrent crossers race on SETNX; exactly one advances the level, the
// rest observe the lock it placed.
func (m *Manager) RecordFailure(ctx context.Context, account string) (Status, error) {
	// An already-locked account does not accumulate further failures.
	status, err := m.Status(ctx, account)
	if err != nil {
		return Status{}, err
	}
	if status.Locked {
		return status, nil
	}

	count, err := m.redis.Incr(ctx, m.failKey(account)).Result()
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 && m.config.FailWindow > 0 {
		// First failure arms the window so stale counters age out.
		if err := m.redis.Expire(ctx, m.failKey(account), m.config.FailWindow).Err(); err != nil {
			return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count < int64(m.config.Threshold) {
		return Status{Failures: count}, nil
	}

	return m.lock(ctx, account)
}

func (m *Manager) lock(ctx context.Context, account string) (Status, error) {
	level, err := m.Level(ctx, account)
	if err != nil {
		return Status{}, err
	}

	duration := m.lockDuration(level)
	episode := level + 1

	ok, err := m.redis.SetNX(ctx, m.lockKey(account), strconv.Itoa(episode), duration).Result()
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if !ok {
		// Lost the race; someone else placed the lock.
		return m.Status(ctx, account)
	}

	if _, err := m.redis.Incr(ctx, m.levelKey(account)).Result(); err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if m.config.LevelTTL > 0 {
		if err := m.redis.Expire(ctx, m.levelKey(account), m.config.LevelTTL).Err(); err != nil {
			return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	if err := m.redis.Del(ctx, m.failKey(account)).Err(); err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return Status{Locked: true, Until: time.Now().Add(duration), Level: episode, JustLocked: true}, nil
}

// RecordSuccess clears the failure counter. The escalation level is kept on
// purpose, so a later episode still locks longer.
func (m *Manager) RecordSuccess(ctx context.Context, account string) error {
	if err := m.redis.Del(ctx, m.failKey(account)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Status reads the lock state. Expiry is lazy: the lock key's own TTL is
// the lock, so a lapsed lock simply reads as missing.
func (m *Manager) Status(ctx context.Context, account string) (Status, error) {
	val, err := m.redis.Get(ctx, m.lockKey(account)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Status{}, nil
		}
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	ttl, err := m.redis.PTTL(ctx, m.lockKey(account)).Result()
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl < 0 {
		// Key vanished or lost its TTL between the two reads.
		return Status{}, nil
	}

	level, _ := strconv.Atoi(val)
	return Status{Locked: true, Until: time.Now().Add(ttl), Level: level}, nil
}

// Level reports the escalation memory for an account (0 when none).
func (m *Manager) Level(ctx context.Context, account string) (int, error) {
	level, err := m.redis.Get(ctx, m.levelKey(account)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(level), nil
}

// ForceUnlock removes the lock and the failure counter unconditionally but
// leaves the escalation level alone.
func (m *Manager) ForceUnlock(ctx context.Context, account string) error {
	if err := m.redis.Del(ctx, m.lockKey(account), m.failKey(account)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ListLocked returns up to limit currently locked accounts.
func (m *Manager) ListLocked(ctx context.Context, limit int) ([]LockedAccount, error) {
	pattern := m.prefix + ":lk:*"
	trim := m.prefix + ":lk:"
	var out []LockedAccount

	var cursor uint64
	for {
		keys, next, err := m.redis.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		for _, key := range keys {
			account := strings.TrimPrefix(key, trim)
			status, err := m.Status(ctx, account)
			if err != nil {
				return out, err
			}
			if !status.Locked {
				continue
			}
			out = append(out, LockedAccount{Account: account, Until: status.Until, Level: status.Level})
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

func (m *Manager) lockDuration(level int) time.Duration {
	if level > m.config.MaxLevel {
		level = m.config.MaxLevel
	}
	if level > 30 {
		level = 30
	}

	duration := m.config.BaseDuration << uint(level)
	if m.config.MaxDuration > 0 && duration > m.config.MaxDuration {
		duration = m.config.MaxDuration
	}
	return duration
}
