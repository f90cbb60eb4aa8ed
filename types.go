package goGuard

import (
	"context"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/MrEthical07/goGuard/internal/events"
	"github.com/MrEthical07/goGuard/internal/ipblock"
	"github.com/MrEthical07/goGuard/internal/lockout"
	"github.com/MrEthical07/goGuard/internal/monitor"
	"github.com/MrEthical07/goGuard/internal/otp"
)

// Event is the canonical security event record. Events flow through the
// append-only log and, when sinks are configured, the async dispatcher.
type Event = events.Event

// EventKind enumerates security event types.
type EventKind = events.Kind

// EventSeverity classifies events for reporting and alert routing.
type EventSeverity = events.Severity

// EventFilter selects events for QueryEvents. Zero fields match everything.
type EventFilter = events.Filter

const (
	EventLoginSuccess       = events.KindLoginSuccess
	EventLoginFailed        = events.KindLoginFailed
	EventAccountLocked      = events.KindAccountLocked
	EventAccountUnlocked    = events.KindAccountUnlocked
	EventPasswordChanged    = events.KindPasswordChanged
	EventOTPIssued          = events.KindOTPIssued
	EventOTPValidated       = events.KindOTPValidated
	EventOTPFailed          = events.KindOTPFailed
	EventRateLimitExceeded  = events.KindRateLimitExceeded
	EventIPBlocked          = events.KindIPBlocked
	EventIPUnblocked        = events.KindIPUnblocked
	EventSuspiciousActivity = events.KindSuspiciousActivity
	EventSessionCreated     = events.KindSessionCreated
	EventSessionTerminated  = events.KindSessionTerminated
)

const (
	SeverityLow      = events.SeverityLow
	SeverityMedium   = events.SeverityMedium
	SeverityHigh     = events.SeverityHigh
	SeverityCritical = events.SeverityCritical
)

/*
====================================
SINKS
====================================
*/

// Sink receives events from the dispatcher. Emit must not block for long;
// slow sinks back-pressure or drop depending on EventsConfig.DropIfFull.
type Sink = events.Sink

type (
	NoOpSink       = events.NoOpSink
	ChannelSink    = events.ChannelSink
	JSONWriterSink = events.JSONWriterSink
	ZapSink        = events.ZapSink
	KafkaSink      = events.KafkaSink
)

// NewChannelSink buffers events on a channel, mostly for tests and
// in-process consumers.
func NewChannelSink(buffer int) *ChannelSink { return events.NewChannelSink(buffer) }

// NewJSONWriterSink writes one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return events.NewJSONWriterSink(w) }

// NewZapSink logs events through a zap logger.
func NewZapSink(logger *zap.Logger) *ZapSink { return events.NewZapSink(logger) }

// NewKafkaSink publishes events to a caller-owned kafka writer. The caller
// keeps ownership and closes the writer after Guard.Close.
func NewKafkaSink(writer *kafka.Writer) *KafkaSink { return events.NewKafkaSink(writer) }

/*
====================================
OTP
====================================
*/

// Channel selects the delivery transport for a one-time code.
type Channel = otp.Channel

const (
	ChannelEmail = otp.ChannelEmail
	ChannelSMS   = otp.ChannelSMS
)

// ParseChannel maps "email" or "sms" onto a Channel.
func ParseChannel(s string) (Channel, error) { return otp.ParseChannel(s) }

// Sender delivers one-time codes to users. Implementations must be safe
// for concurrent use; delivery runs detached from the issuing call.
type Sender interface {
	Send(ctx context.Context, channel Channel, to, code string) error
}

// SenderFunc adapts a plain function to the Sender interface.
type SenderFunc func(ctx context.Context, channel Channel, to, code string) error

func (f SenderFunc) Send(ctx context.Context, channel Channel, to, code string) error {
	return f(ctx, channel, to, code)
}

// ChannelChecker is an optional Sender refinement. When the configured
// Sender implements it, IssueOTP asks before persisting anything and fails
// with ErrDeliveryUnavailable if the channel cannot be served.
type ChannelChecker interface {
	Supports(channel Channel) bool
}

// IssuedOTP is returned by Guard.IssueOTP. Code is the plaintext the user
// must echo back; it is never persisted and never appears in events.
type IssuedOTP struct {
	User        string
	Purpose     string
	Channel     Channel
	Code        string
	ExpiresAt   time.Time
	MaxAttempts int
}

/*
====================================
DECISIONS AND STATUS
====================================
*/

// RateDecision reports one fixed-window check.
type RateDecision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// LockStatus describes an account's lockout state at read time.
type LockStatus struct {
	Locked   bool
	Until    time.Time
	Level    int
	Failures int64
}

// BlockStatus describes an address block at read time.
type BlockStatus struct {
	Blocked bool
	Until   time.Time
	Reason  string
	Events  int64
}

// LockedAccount is one row of LockedAccounts.
type LockedAccount = lockout.LockedAccount

// BlockedAddress is one row of BlockedAddresses.
type BlockedAddress = ipblock.BlockedAddress

/*
====================================
MONITORING
====================================
*/

// Stats is the dashboard aggregation over one time window.
type Stats = monitor.Stats

// Finding is one suspicious pattern surfaced by ScanSuspicious.
type Finding = monitor.Finding

type (
	AddressCount = monitor.AddressCount
	AccountCount = monitor.AccountCount
)

// SecurityReport is the periodic summary: aggregates over the window plus
// the live lock and block state at generation time.
type SecurityReport struct {
	monitor.Report
	LockedNow  []LockedAccount  `json:"locked_now,omitempty"`
	BlockedNow []BlockedAddress `json:"blocked_now,omitempty"`
}

// CleanupStats summarizes one RunCleanup pass.
type CleanupStats struct {
	OTPsPurged   int64 `json:"otps_purged"`
	EventsPurged int64 `json:"events_purged"`
}
