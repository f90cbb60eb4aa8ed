//go:build integration
// +build integration

package test

import (
	"testing"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/redis/go-redis/v9"
)

// integrationConfig is the shared baseline for the compat and budget suites:
// issue throttle off so OTP tests control their own budgets, deterministic
// wrong-code material (the alphanumeric alphabet has no '0'), and thresholds
// small enough to cross without clock manipulation.
func integrationConfig() goGuard.Config {
	cfg := goGuard.DefaultConfig()
	cfg.RedisPrefix = "ggcompat"

	cfg.OTP.TTL = time.Minute
	cfg.OTP.CodeLength = 6
	cfg.OTP.Alphabet = "alphanumeric"
	cfg.OTP.MaxAttempts = 3
	cfg.OTP.EnableIssueThrottle = false

	cfg.Rate.Rules = map[string]goGuard.RateRule{
		"login": {Limit: 2, Window: time.Hour},
		"api":   {Limit: 1 << 30, Window: time.Hour},
	}
	cfg.Rate.Default = goGuard.RateRule{}

	cfg.Lockout.Threshold = 2
	cfg.Lockout.FailWindow = time.Hour
	cfg.Lockout.BaseDuration = time.Hour
	cfg.Lockout.MaxDuration = 4 * time.Hour
	cfg.Lockout.LevelTTL = 24 * time.Hour

	cfg.IPBlock.Threshold = 2
	cfg.IPBlock.AbuseWindow = time.Hour
	cfg.IPBlock.BlockDuration = time.Hour

	cfg.Metrics.Enabled = false

	return cfg
}

func newIntegrationGuard(t *testing.T, rdb redis.UniversalClient) (*goGuard.Guard, func()) {
	t.Helper()

	guard, err := goGuard.New().
		WithConfig(integrationConfig()).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("guard build failed: %v", err)
	}

	return guard, func() { guard.Close() }
}
