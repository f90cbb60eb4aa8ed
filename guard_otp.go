package goGuard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goGuard/internal"
	"github.com/MrEthical07/goGuard/internal/otp"
)

// IssueOTP generates, stores, and (when a Sender is configured) delivers a
// one-time code for the (user, purpose) pair. Issuing a new code overwrites
// any previous code for the same pair, which invalidates it.
//
// Issuance is throttled per user and purpose; a denied call returns
// ErrRateLimited inside a [RetryAfterError] and nothing is stored. Delivery
// runs detached so transport latency never blocks the caller; a delivery
// failure is logged, not returned.
func (g *Guard) IssueOTP(ctx context.Context, user, purpose string, channel Channel) (*IssuedOTP, error) {
	if g == nil {
		return nil, ErrGuardNotReady
	}
	if user == "" {
		return nil, fmt.Errorf("%w: user required", ErrInvalidInput)
	}
	if purpose == "" {
		return nil, fmt.Errorf("%w: purpose required", ErrInvalidInput)
	}
	if channel != ChannelEmail && channel != ChannelSMS {
		return nil, fmt.Errorf("%w: unknown channel", ErrInvalidInput)
	}

	// Channel availability is checked before anything is persisted, so a
	// misconfigured transport cannot strand codes that were never sent.
	if checker, ok := g.sender.(ChannelChecker); ok && !checker.Supports(channel) {
		return nil, ErrDeliveryUnavailable
	}

	if g.config.OTP.EnableIssueThrottle {
		action := "otp_issue:" + purpose
		decision, err := g.rateLimiter.Allow(ctx, user, action)
		if err != nil {
			return nil, g.storeErr("otp_issue_throttle", err)
		}
		if !decision.Allowed {
			g.metricInc(MetricOTPRateLimited)
			g.emitEvent(ctx, EventRateLimitExceeded, false, user, "", ErrRateLimited, map[string]string{
				"action": action,
			})
			return nil, &RetryAfterError{Err: ErrRateLimited, RetryAfter: decision.RetryAfter}
		}
	}

	code, err := internal.NewCode(g.config.OTP.CodeLength, codeAlphabet(g.config.OTP.Alphabet))
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(g.config.OTP.TTL)

	record := &otp.Record{
		Channel:     channel,
		MaxAttempts: uint16(g.config.OTP.MaxAttempts),
		CreatedAt:   now.UnixMilli(),
		ExpiresAt:   expiresAt.UnixMilli(),
		CodeHash:    internal.HashCode(code),
	}

	// The Redis TTL outlives the logical expiry by the retention grace so
	// exhausted and expired records keep answering consistently until the
	// purge pass removes them.
	storeTTL := g.config.OTP.TTL + g.config.OTP.RetentionGrace
	if err := g.otpStore.Save(ctx, user, purpose, record, storeTTL); err != nil {
		return nil, g.storeErr("otp_save", err)
	}

	g.metricInc(MetricOTPIssued)
	g.emitEvent(ctx, EventOTPIssued, true, user, "", nil, map[string]string{
		"purpose": purpose,
		"channel": channel.String(),
	})

	if g.sender != nil {
		go g.deliver(user, purpose, channel, code)
	}

	return &IssuedOTP{
		User:        user,
		Purpose:     purpose,
		Channel:     channel,
		Code:        code,
		ExpiresAt:   expiresAt,
		MaxAttempts: g.config.OTP.MaxAttempts,
	}, nil
}

// ValidateOTP checks a candidate code against the stored record for the
// (user, purpose) pair. The whole read-modify-write is atomic per key: a
// wrong candidate burns one attempt, a correct one consumes the code so it
// can never validate twice. Once the attempt budget is spent every later
// candidate answers ErrOTPAttemptsExceeded, the correct code included.
func (g *Guard) ValidateOTP(ctx context.Context, user, purpose, code string) error {
	if g == nil {
		return ErrGuardNotReady
	}
	if user == "" || purpose == "" || code == "" {
		return fmt.Errorf("%w: user, purpose and code required", ErrInvalidInput)
	}

	start := time.Now()
	defer func() {
		g.observeLatency(MetricValidateLatency, time.Since(start))
	}()

	record, err := g.otpStore.Consume(ctx, user, purpose, internal.HashCode(code))
	if err != nil {
		mapped := mapOTPError(err)
		if errors.Is(mapped, ErrStoreUnavailable) {
			return g.storeErr("otp_consume", err)
		}

		g.metricInc(MetricOTPFailed)
		g.emitEvent(ctx, EventOTPFailed, false, user, "", mapped, map[string]string{
			"purpose": purpose,
		})
		return mapped
	}

	g.metricInc(MetricOTPValidated)
	g.emitEvent(ctx, EventOTPValidated, true, user, "", nil, map[string]string{
		"purpose": purpose,
		"channel": record.Channel.String(),
	})

	return nil
}

// PurgeExpiredOTPs deletes every record whose validity window has passed,
// tombstones included. Idempotent; meant for the cleanup scheduler.
func (g *Guard) PurgeExpiredOTPs(ctx context.Context) (int64, error) {
	if g == nil {
		return 0, ErrGuardNotReady
	}

	purged, err := g.otpStore.PurgeExpired(ctx, time.Now())
	if err != nil {
		return int64(purged), g.storeErr("otp_purge", err)
	}

	g.metricAdd(MetricPurgedOTPs, uint64(purged))
	if purged > 0 {
		g.logger.Info("purged expired otp records", zap.Int("count", purged))
	}

	return int64(purged), nil
}

func (g *Guard) deliver(user, purpose string, channel Channel, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), g.config.OTP.SendTimeout)
	defer cancel()

	if err := g.sender.Send(ctx, channel, user, code); err != nil {
		g.logger.Warn("otp delivery failed",
			zap.String("purpose", purpose),
			zap.String("channel", channel.String()),
			zap.Error(err),
		)
	}
}

func mapOTPError(err error) error {
	switch {
	case errors.Is(err, otp.ErrNotFound):
		return ErrOTPNotFound
	case errors.Is(err, otp.ErrExpired):
		return ErrOTPExpired
	case errors.Is(err, otp.ErrMismatch):
		return ErrOTPMismatch
	case errors.Is(err, otp.ErrAttemptsExceeded):
		return ErrOTPAttemptsExceeded
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func codeAlphabet(name string) string {
	if name == "alphanumeric" {
		return internal.AlphabetAlphanumeric
	}
	return internal.AlphabetNumeric
}
