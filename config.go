package goGuard

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config carries every tunable for the guard. Zero value is not usable;
// start from [DefaultConfig] and override what you need.
type Config struct {
	OTP     OTPConfig
	Rate    RateConfig
	Lockout LockoutConfig
	IPBlock IPBlockConfig
	Events  EventsConfig
	Monitor MonitorConfig
	Metrics MetricsConfig

	// RedisPrefix namespaces every key this library writes.
	RedisPrefix string

	// ProductionMode tightens Validate so lab-grade settings cannot ship.
	ProductionMode bool
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig governs one-time code issuance and validation.
type OTPConfig struct {
	TTL         time.Duration
	CodeLength  int
	Alphabet    string // "numeric" (default) or "alphanumeric"
	MaxAttempts int

	// RetentionGrace keeps expired and exhausted records around past their
	// validity window so repeat attempts keep reporting the same outcome
	// instead of decaying to not-found.
	RetentionGrace time.Duration

	// EnableIssueThrottle gates issuance through the rate limiter under
	// the "otp_issue:{purpose}" action.
	EnableIssueThrottle bool

	// SendTimeout bounds the detached delivery call.
	SendTimeout time.Duration
}

/*
====================================
RATE CONFIG
====================================
*/

// RateRule is one fixed-window budget: at most Limit hits per Window.
// A zero rule means the action is unthrottled.
type RateRule struct {
	Limit  int64
	Window time.Duration
}

// RateConfig maps action names to rules. Lookup tries the exact action,
// then the segment before the first ':', then Default.
type RateConfig struct {
	Rules   map[string]RateRule
	Default RateRule
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig governs failure counting and escalating account locks.
type LockoutConfig struct {
	Threshold    int
	FailWindow   time.Duration
	BaseDuration time.Duration
	MaxDuration  time.Duration

	// MaxLevel caps escalation doubling. 0 means no cap below the
	// hard shift limit.
	MaxLevel int

	// LevelTTL is how long a past lockout keeps escalating the next one.
	LevelTTL time.Duration
}

/*
====================================
IP BLOCK CONFIG
====================================
*/

type IPBlockConfig struct {
	Threshold     int
	AbuseWindow   time.Duration
	BlockDuration time.Duration
}

/*
====================================
EVENTS CONFIG
====================================
*/

// EventsConfig governs the append-only security event log and the
// in-process dispatcher that fans events out to sinks.
type EventsConfig struct {
	RetentionDays int
	MaxScan       int64
	BufferSize    int
	DropIfFull    bool
}

/*
====================================
MONITOR CONFIG
====================================
*/

type MonitorConfig struct {
	TopN        int
	StatsWindow time.Duration

	// Suspicion thresholds. Zero picks the built-in default.
	AccountAddressFanout int
	AddressAccountFanout int
	AddressRateTrips     int
}

// MetricsConfig toggles the in-process counter set.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the stock tuning. Adjust fields as needed and pass
// the result to [Builder.WithConfig].
func DefaultConfig() Config {
	return cloneConfig(defaultConfig())
}

func defaultConfig() Config {
	return Config{
		OTP: OTPConfig{
			TTL:                 5 * time.Minute,
			CodeLength:          6,
			Alphabet:            "numeric",
			MaxAttempts:         5,
			RetentionGrace:      24 * time.Hour,
			EnableIssueThrottle: true,
			SendTimeout:         10 * time.Second,
		},
		Rate: RateConfig{
			Rules: map[string]RateRule{
				"login":          {Limit: 5, Window: 15 * time.Minute},
				"otp_issue":      {Limit: 5, Window: time.Hour},
				"password_reset": {Limit: 3, Window: time.Hour},
				"registration":   {Limit: 3, Window: time.Hour},
				"api":            {Limit: 100, Window: time.Hour},
			},
			Default: RateRule{Limit: 100, Window: time.Hour},
		},
		Lockout: LockoutConfig{
			Threshold:    5,
			FailWindow:   15 * time.Minute,
			BaseDuration: 15 * time.Minute,
			MaxDuration:  24 * time.Hour,
			MaxLevel:     10,
			LevelTTL:     24 * time.Hour,
		},
		IPBlock: IPBlockConfig{
			Threshold:     10,
			AbuseWindow:   time.Hour,
			BlockDuration: time.Hour,
		},
		Events: EventsConfig{
			RetentionDays: 90,
			MaxScan:       10_000,
			BufferSize:    1024,
			DropIfFull:    true,
		},
		Monitor: MonitorConfig{
			TopN:        10,
			StatsWindow: 24 * time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		RedisPrefix:    "gg",
		ProductionMode: false,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Rate.Rules = cloneRules(cfg.Rate.Rules)
	return out
}

func cloneRules(rules map[string]RateRule) map[string]RateRule {
	if rules == nil {
		return nil
	}
	out := make(map[string]RateRule, len(rules))
	for action, rule := range rules {
		out[action] = rule
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

func (c *Config) Validate() error {
	// Prefix
	if c.RedisPrefix == "" {
		return errors.New("RedisPrefix must not be empty")
	}
	if strings.ContainsAny(c.RedisPrefix, ": \t\n") {
		return errors.New("RedisPrefix must not contain ':' or whitespace")
	}

	// OTP
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.CodeLength < 4 || c.OTP.CodeLength > 12 {
		return errors.New("OTP CodeLength must be between 4 and 12")
	}
	if c.OTP.Alphabet != "numeric" && c.OTP.Alphabet != "alphanumeric" {
		return errors.New("OTP Alphabet must be 'numeric' or 'alphanumeric'")
	}
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("OTP MaxAttempts must be > 0")
	}
	if c.OTP.MaxAttempts > 65535 {
		return errors.New("OTP MaxAttempts must fit in 16 bits")
	}
	if c.OTP.RetentionGrace < 0 {
		return errors.New("OTP RetentionGrace must be >= 0")
	}
	if c.OTP.SendTimeout <= 0 {
		return errors.New("OTP SendTimeout must be > 0")
	}

	// Rate
	for action, rule := range c.Rate.Rules {
		if rule.Limit < 0 || rule.Window < 0 {
			return fmt.Errorf("Rate rule %q must not be negative", action)
		}
		if rule.Limit > 0 && rule.Window <= 0 {
			return fmt.Errorf("Rate rule %q Window must be > 0 when Limit is set", action)
		}
	}
	if c.Rate.Default.Limit < 0 || c.Rate.Default.Window < 0 {
		return errors.New("Rate Default must not be negative")
	}
	if c.Rate.Default.Limit > 0 && c.Rate.Default.Window <= 0 {
		return errors.New("Rate Default Window must be > 0 when Limit is set")
	}

	// Lockout
	if c.Lockout.Threshold <= 0 {
		return errors.New("Lockout Threshold must be > 0")
	}
	if c.Lockout.FailWindow <= 0 {
		return errors.New("Lockout FailWindow must be > 0")
	}
	if c.Lockout.BaseDuration <= 0 {
		return errors.New("Lockout BaseDuration must be > 0")
	}
	if c.Lockout.MaxDuration < c.Lockout.BaseDuration {
		return errors.New("Lockout MaxDuration must be >= BaseDuration")
	}
	if c.Lockout.MaxLevel < 0 || c.Lockout.MaxLevel > 30 {
		return errors.New("Lockout MaxLevel must be between 0 and 30")
	}
	if c.Lockout.LevelTTL <= 0 {
		return errors.New("Lockout LevelTTL must be > 0")
	}

	// IP block
	if c.IPBlock.Threshold <= 0 {
		return errors.New("IPBlock Threshold must be > 0")
	}
	if c.IPBlock.AbuseWindow <= 0 {
		return errors.New("IPBlock AbuseWindow must be > 0")
	}
	if c.IPBlock.BlockDuration <= 0 {
		return errors.New("IPBlock BlockDuration must be > 0")
	}

	// Events
	if c.Events.RetentionDays <= 0 {
		return errors.New("Events RetentionDays must be > 0")
	}
	if c.Events.MaxScan <= 0 {
		return errors.New("Events MaxScan must be > 0")
	}
	if c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0")
	}

	// Monitor
	if c.Monitor.TopN <= 0 {
		return errors.New("Monitor TopN must be > 0")
	}
	if c.Monitor.StatsWindow <= 0 {
		return errors.New("Monitor StatsWindow must be > 0")
	}
	if c.Monitor.AccountAddressFanout < 0 ||
		c.Monitor.AddressAccountFanout < 0 ||
		c.Monitor.AddressRateTrips < 0 {
		return errors.New("Monitor suspicion thresholds must be >= 0")
	}

	if c.ProductionMode {
		if c.OTP.TTL > 15*time.Minute {
			return errors.New("ProductionMode requires OTP TTL <= 15m")
		}
		if c.OTP.CodeLength < 6 {
			return errors.New("ProductionMode requires OTP CodeLength >= 6")
		}
		if c.OTP.MaxAttempts > 5 {
			return errors.New("ProductionMode requires OTP MaxAttempts <= 5")
		}
		if !c.OTP.EnableIssueThrottle {
			return errors.New("ProductionMode requires OTP EnableIssueThrottle")
		}
		if rule, ok := c.Rate.Rules["otp_issue"]; !ok || rule.Limit <= 0 {
			return errors.New("ProductionMode requires an otp_issue rate rule")
		}
		if c.Lockout.Threshold > 10 {
			return errors.New("ProductionMode requires Lockout Threshold <= 10")
		}
		if c.Lockout.BaseDuration < time.Minute {
			return errors.New("ProductionMode requires Lockout BaseDuration >= 1m")
		}
		if c.IPBlock.BlockDuration < 10*time.Minute {
			return errors.New("ProductionMode requires IPBlock BlockDuration >= 10m")
		}
		if c.Events.RetentionDays < 30 {
			return errors.New("ProductionMode requires Events RetentionDays >= 30")
		}
	}

	return nil
}
