package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule is one fixed-window budget: at most Limit hits per Window.
type Rule struct {
	Limit  int64
	Window time.Duration
}

// Config maps action names to rules. Lookup order: exact action, the action
// prefix before the first ':', then Default. Composite names like
// "otp_issue:login" inherit the "otp_issue" rule unless pinned exactly.
type Config struct {
	Rules   map[string]Rule
	Default Rule
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter enforces per-(actor, action) fixed windows with Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, prefix string, cfg Config) *Limiter {
	if prefix == "" {
		prefix = "gg"
	}
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

// Rule resolves the budget that applies to an action.
func (l *Limiter) Rule(action string) Rule {
	if r, ok := l.config.Rules[action]; ok {
		return r
	}
	if i := strings.IndexByte(action, ':'); i > 0 {
		if r, ok := l.config.Rules[action[:i]]; ok {
			return r
		}
	}
	return l.config.Default
}

// Allow counts one hit against the (actor, action) window and decides it.
// The counter increment is the atomic decision point: exactly one caller
// observes the first hit of a window and arms its TTL.
func (l *Limiter) Allow(ctx context.Context, actor, action string) (Decision, error) {
	rule := l.Rule(action)
	if rule.Limit <= 0 || rule.Window <= 0 {
		return Decision{Allowed: true}, nil
	}

	key := l.key(actor, action)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, rule.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > rule.Limit {
		retry, err := l.redis.PTTL(ctx, key).Result()
		if err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if retry <= 0 {
			// Self-heal counters that lost their TTL.
			retry = rule.Window
			_ = l.redis.Expire(ctx, key, rule.Window).Err()
		}
		return Decision{Allowed: false, RetryAfter: retry}, nil
	}

	return Decision{Allowed: true, Remaining: rule.Limit - count}, nil
}

// ClearAll deletes every rate window under this limiter's prefix and
// returns how many were dropped. Maintenance hook for the scheduler;
// request paths never call it.
func (l *Limiter) ClearAll(ctx context.Context) (int, error) {
	cleared := 0

	var cursor uint64
	for {
		keys, next, err := l.redis.Scan(ctx, cursor, l.scanPattern(), 1000).Result()
		if err != nil {
			return cleared, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		if len(keys) > 0 {
			if err := l.redis.Del(ctx, keys...).Err(); err != nil {
				return cleared, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
			cleared += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return cleared, nil
}

func (l *Limiter) key(actor, action string) string {
	return l.prefix + ":rl:" + actor + ":" + action
}

func (l *Limiter) scanPattern() string {
	return l.prefix + ":rl:*"
}
