package goGuard

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/goGuard/internal/events"
	"github.com/MrEthical07/goGuard/internal/ipblock"
	"github.com/MrEthical07/goGuard/internal/lockout"
	"github.com/MrEthical07/goGuard/internal/otp"
	"github.com/MrEthical07/goGuard/internal/rate"
)

// Builder assembles a Guard. Single-use: Build consumes it.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *zap.Logger
	sender Sender
	sinks  []Sink

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration wholesale. Start from the defaults
// and override fields rather than building a Config from zero.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the backing store. Required. Cluster and sentinel clients
// work as well as a single-node client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithSender sets the delivery collaborator for one-time codes. Without
// one, IssueOTP still works and the caller delivers IssuedOTP.Code itself.
func (b *Builder) WithSender(sender Sender) *Builder {
	b.sender = sender
	return b
}

// WithEventSink adds a sink to the async dispatcher. May be called multiple
// times; nil sinks are ignored.
func (b *Builder) WithEventSink(sink Sink) *Builder {
	if sink != nil {
		b.sinks = append(b.sinks, sink)
	}
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Guard.
func (b *Builder) Build() (*Guard, error) {
	if b.built {
		return nil, ErrBuilderReused
	}

	if b.redis == nil {
		return nil, ErrRedisRequired
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rules := make(map[string]rate.Rule, len(cfg.Rate.Rules))
	for action, rule := range cfg.Rate.Rules {
		rules[action] = rate.Rule{Limit: rule.Limit, Window: rule.Window}
	}

	guard := &Guard{
		config:   cfg,
		otpStore: otp.NewStore(b.redis, cfg.RedisPrefix),
		rateLimiter: rate.New(b.redis, cfg.RedisPrefix, rate.Config{
			Rules:   rules,
			Default: rate.Rule{Limit: cfg.Rate.Default.Limit, Window: cfg.Rate.Default.Window},
		}),
		lockouts: lockout.New(b.redis, cfg.RedisPrefix, lockout.Config{
			Threshold:    cfg.Lockout.Threshold,
			FailWindow:   cfg.Lockout.FailWindow,
			BaseDuration: cfg.Lockout.BaseDuration,
			MaxDuration:  cfg.Lockout.MaxDuration,
			MaxLevel:     cfg.Lockout.MaxLevel,
			LevelTTL:     cfg.Lockout.LevelTTL,
		}),
		ipBlocks: ipblock.New(b.redis, cfg.RedisPrefix, ipblock.Config{
			Threshold:     cfg.IPBlock.Threshold,
			AbuseWindow:   cfg.IPBlock.AbuseWindow,
			BlockDuration: cfg.IPBlock.BlockDuration,
		}),
		eventLog: events.NewLog(b.redis, cfg.RedisPrefix, int(cfg.Events.MaxScan)),
		dispatcher: events.NewDispatcher(events.DispatchConfig{
			BufferSize: cfg.Events.BufferSize,
			DropIfFull: cfg.Events.DropIfFull,
		}, b.sinks...),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		sender:  b.sender,
	}

	b.built = true

	return guard, nil
}
