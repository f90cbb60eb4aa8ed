package internaldefs

import (
	goGuard "github.com/MrEthical07/goGuard"
)

// CounterDef binds one core counter to its stable exported name.
type CounterDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// HistogramDef binds one core histogram to its stable exported name.
type HistogramDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// CounterDefs is the single source of truth for exported counter names.
// Both exporters iterate it, so the two backends can never drift apart.
var CounterDefs = []CounterDef{
	{ID: goGuard.MetricOTPIssued, Name: "goguard_otp_issued_total", Help: "Issued one-time codes."},
	{ID: goGuard.MetricOTPValidated, Name: "goguard_otp_validated_total", Help: "Successful one-time code validations."},
	{ID: goGuard.MetricOTPFailed, Name: "goguard_otp_failed_total", Help: "Failed one-time code validations."},
	{ID: goGuard.MetricOTPRateLimited, Name: "goguard_otp_rate_limited_total", Help: "Rate-limited issuance attempts."},
	{ID: goGuard.MetricRateAllowed, Name: "goguard_rate_allowed_total", Help: "Rate checks that allowed the hit."},
	{ID: goGuard.MetricRateDenied, Name: "goguard_rate_denied_total", Help: "Rate checks that denied the hit."},
	{ID: goGuard.MetricLoginFailures, Name: "goguard_login_failures_total", Help: "Recorded authentication failures."},
	{ID: goGuard.MetricLoginSuccesses, Name: "goguard_login_successes_total", Help: "Recorded authentication successes."},
	{ID: goGuard.MetricAccountLockouts, Name: "goguard_account_lockouts_total", Help: "Accounts locked by the failure threshold."},
	{ID: goGuard.MetricManualUnlocks, Name: "goguard_manual_unlocks_total", Help: "Manual account unlocks."},
	{ID: goGuard.MetricIPBlocks, Name: "goguard_ip_blocks_total", Help: "Addresses blocked, automatic and manual."},
	{ID: goGuard.MetricIPUnblocks, Name: "goguard_ip_unblocks_total", Help: "Addresses unblocked."},
	{ID: goGuard.MetricIPDenied, Name: "goguard_ip_denied_total", Help: "Block checks that found the address blocked."},
	{ID: goGuard.MetricEventsAppended, Name: "goguard_events_appended_total", Help: "Security events appended to the log."},
	{ID: goGuard.MetricEventLogErrors, Name: "goguard_event_log_errors_total", Help: "Event log writes that failed."},
	{ID: goGuard.MetricStoreErrors, Name: "goguard_store_errors_total", Help: "Redis operations that failed (denied fail-closed)."},
	{ID: goGuard.MetricPurgeRuns, Name: "goguard_purge_runs_total", Help: "Cleanup passes started."},
	{ID: goGuard.MetricPurgedOTPs, Name: "goguard_purged_otps_total", Help: "Expired one-time code records purged."},
	{ID: goGuard.MetricPurgedEvents, Name: "goguard_purged_events_total", Help: "Security events purged past retention."},
}

var HistogramDefs = []HistogramDef{
	{ID: goGuard.MetricValidateLatency, Name: "goguard_validate_latency_seconds", Help: "ValidateOTP latency histogram."},
}

// HistogramBounds are the upper bounds of the core latency buckets, in
// seconds, matching the core bucketing exactly.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with names usable in
// instrument identifiers.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form
// Prometheus histograms expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
