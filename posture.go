package goGuard

import "time"

// SecurityPosture summarizes the protections a built Guard enforces,
// derived from its effective configuration. It is a static self-description
// for startup logs and ops dashboards; live state (who is locked, what is
// blocked) comes from [Guard.Report].
type SecurityPosture struct {
	ProductionMode bool
	KeyPrefix      string

	OTP     OTPPosture
	Lockout LockoutPosture

	IssueThrottleActive  bool
	RateLimitingActive   bool
	IPAutoBlockThreshold int
	IPBlockDuration      time.Duration

	EventRetention   time.Duration
	EventFanoutLossy bool

	MetricsActive           bool
	LatencyHistogramsActive bool
}

type OTPPosture struct {
	TTL         time.Duration
	CodeLength  int
	Alphabet    string
	MaxAttempts int
}

type LockoutPosture struct {
	Threshold    int
	FailWindow   time.Duration
	BaseDuration time.Duration
	MaxDuration  time.Duration
	MaxLevel     int
}

// Posture reports the Guard's effective security posture.
func (g *Guard) Posture() SecurityPosture {
	if g == nil {
		return SecurityPosture{}
	}

	rateActive := g.config.Rate.Default.Limit > 0
	for _, rule := range g.config.Rate.Rules {
		if rule.Limit > 0 {
			rateActive = true
			break
		}
	}

	issueRule, hasIssueRule := g.config.Rate.Rules["otp_issue"]
	issueMetered := (hasIssueRule && issueRule.Limit > 0) || g.config.Rate.Default.Limit > 0

	return SecurityPosture{
		ProductionMode: g.config.ProductionMode,
		KeyPrefix:      g.config.RedisPrefix,
		OTP: OTPPosture{
			TTL:         g.config.OTP.TTL,
			CodeLength:  g.config.OTP.CodeLength,
			Alphabet:    g.config.OTP.Alphabet,
			MaxAttempts: g.config.OTP.MaxAttempts,
		},
		Lockout: LockoutPosture{
			Threshold:    g.config.Lockout.Threshold,
			FailWindow:   g.config.Lockout.FailWindow,
			BaseDuration: g.config.Lockout.BaseDuration,
			MaxDuration:  g.config.Lockout.MaxDuration,
			MaxLevel:     g.config.Lockout.MaxLevel,
		},
		IssueThrottleActive:     g.config.OTP.EnableIssueThrottle && issueMetered,
		RateLimitingActive:      rateActive,
		IPAutoBlockThreshold:    g.config.IPBlock.Threshold,
		IPBlockDuration:         g.config.IPBlock.BlockDuration,
		EventRetention:          time.Duration(g.config.Events.RetentionDays) * 24 * time.Hour,
		EventFanoutLossy:        g.config.Events.DropIfFull,
		MetricsActive:           g.config.Metrics.Enabled,
		LatencyHistogramsActive: g.config.Metrics.Enabled && g.config.Metrics.EnableLatencyHistograms,
	}
}
