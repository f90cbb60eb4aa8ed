package goGuard

import "time"

/*
====================================
CONFIG PRESETS
====================================
*/

// HighSecurityConfig returns a preset tuned for hostile traffic: short
// code lifetimes, tight attempt budgets, aggressive lockout escalation,
// long event retention. ProductionMode is on, so Validate holds it to
// the stricter rules, and it lints clean.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.ProductionMode = true

	cfg.OTP.TTL = 3 * time.Minute
	cfg.OTP.CodeLength = 8
	cfg.OTP.Alphabet = "alphanumeric"
	cfg.OTP.MaxAttempts = 3
	cfg.OTP.RetentionGrace = 48 * time.Hour

	cfg.Rate.Rules = map[string]RateRule{
		"login":          {Limit: 3, Window: 15 * time.Minute},
		"otp_issue":      {Limit: 3, Window: time.Hour},
		"password_reset": {Limit: 2, Window: time.Hour},
		"registration":   {Limit: 2, Window: time.Hour},
		"api":            {Limit: 60, Window: time.Hour},
	}
	cfg.Rate.Default = RateRule{Limit: 30, Window: time.Hour}

	cfg.Lockout.Threshold = 3
	cfg.Lockout.BaseDuration = 30 * time.Minute
	cfg.Lockout.MaxDuration = 72 * time.Hour
	cfg.Lockout.LevelTTL = 7 * 24 * time.Hour

	cfg.IPBlock.Threshold = 5
	cfg.IPBlock.BlockDuration = 6 * time.Hour

	cfg.Events.RetentionDays = 180

	cfg.Metrics.Enabled = true

	return cfg
}

// HighThroughputConfig returns a preset for high-volume deployments:
// generous budgets so legitimate bursts pass, large dispatch buffers,
// wide scan caps. Protections stay on; only the thresholds move.
func HighThroughputConfig() Config {
	cfg := defaultConfig()
	cfg.ProductionMode = true

	cfg.OTP.SendTimeout = 5 * time.Second

	cfg.Rate.Rules = map[string]RateRule{
		"login":          {Limit: 20, Window: 15 * time.Minute},
		"otp_issue":      {Limit: 10, Window: time.Hour},
		"password_reset": {Limit: 5, Window: time.Hour},
		"registration":   {Limit: 10, Window: time.Hour},
		"api":            {Limit: 5000, Window: time.Hour},
	}
	cfg.Rate.Default = RateRule{Limit: 1000, Window: time.Hour}

	cfg.Lockout.Threshold = 10
	cfg.IPBlock.Threshold = 50

	cfg.Events.MaxScan = 50_000
	cfg.Events.BufferSize = 8192
	cfg.Events.DropIfFull = true

	cfg.Monitor.TopN = 20

	cfg.Metrics.Enabled = true

	return cfg
}
