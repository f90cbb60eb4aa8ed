package monitor

import (
	"fmt"
	"sort"
	"time"

	"github.com/MrEthical07/goGuard/internal/events"
)

// AddressCount pairs a source address with an occurrence count.
type AddressCount struct {
	Address string `json:"address"`
	Count   int64  `json:"count"`
}

// AccountCount pairs an account with an occurrence count.
type AccountCount struct {
	Account string `json:"account"`
	Count   int64  `json:"count"`
}

// Stats is the dashboard aggregation over one time window.
type Stats struct {
	Window         time.Duration         `json:"window"`
	GeneratedAt    time.Time             `json:"generated_at"`
	LoginFailures  int64                 `json:"login_failures"`
	OTPFailures    int64                 `json:"otp_failures"`
	AccountsLocked int64                 `json:"accounts_locked"`
	IPsBlocked     int64                 `json:"ips_blocked"`
	EventsByKind   map[events.Kind]int64 `json:"events_by_kind"`
	TopAddresses   []AddressCount        `json:"top_addresses,omitempty"`
}

// StatsInput carries everything BuildStats needs; the caller owns the event
// read and its bounds.
type StatsInput struct {
	Window      time.Duration
	GeneratedAt time.Time
	Events      []events.Event
	TopN        int
}

// BuildStats aggregates one bounded event slice into dashboard counters.
// Pure function: no I/O, no clock reads.
func BuildStats(input StatsInput) Stats {
	stats := Stats{
		Window:       input.Window,
		GeneratedAt:  input.GeneratedAt,
		EventsByKind: make(map[events.Kind]int64, 16),
	}

	offenders := make(map[string]int64)
	for _, e := range input.Events {
		stats.EventsByKind[e.Kind]++

		switch e.Kind {
		case events.KindLoginFailed:
			stats.LoginFailures++
		case events.KindOTPFailed:
			stats.OTPFailures++
		case events.KindAccountLocked:
			stats.AccountsLocked++
		case events.KindIPBlocked:
			stats.IPsBlocked++
		}

		if e.Address != "" && isOffense(e.Kind) {
			offenders[e.Address]++
		}
	}

	stats.TopAddresses = topAddresses(offenders, input.TopN)
	return stats
}

// Finding is one suspicious pattern surfaced by FindSuspicious.
type Finding struct {
	Pattern string `json:"pattern"`
	Account string `json:"account,omitempty"`
	Address string `json:"address,omitempty"`
	Count   int64  `json:"count"`
	Detail  string `json:"detail"`
}

const (
	PatternAccountFanout = "account_hit_from_many_addresses"
	PatternAddressFanout = "address_probing_many_accounts"
	PatternAddressTrips  = "address_tripping_rate_limits"
)

// SuspicionConfig sets the fan-out thresholds for the heuristics. Zero
// fields take the defaults.
type SuspicionConfig struct {
	AccountAddressFanout int // distinct addresses failing one account
	AddressAccountFanout int // distinct accounts failed from one address
	AddressRateTrips     int // rate-limit denials from one address
}

func (c SuspicionConfig) withDefaults() SuspicionConfig {
	if c.AccountAddressFanout <= 0 {
		c.AccountAddressFanout = 3
	}
	if c.AddressAccountFanout <= 0 {
		c.AddressAccountFanout = 5
	}
	if c.AddressRateTrips <= 0 {
		c.AddressRateTrips = 10
	}
	return c
}

// FindSuspicious scans a bounded event slice for credential-stuffing and
// spraying shapes. Pure function; ordering of findings is deterministic.
func FindSuspicious(evts []events.Event, cfg SuspicionConfig) []Finding {
	cfg = cfg.withDefaults()

	accountAddrs := make(map[string]map[string]struct{})
	addressAccts := make(map[string]map[string]struct{})
	addressTrips := make(map[string]int64)

	for _, e := range evts {
		switch e.Kind {
		case events.KindLoginFailed, events.KindOTPFailed:
			if e.Account != "" && e.Address != "" {
				if accountAddrs[e.Account] == nil {
					accountAddrs[e.Account] = make(map[string]struct{})
				}
				accountAddrs[e.Account][e.Address] = struct{}{}

				if addressAccts[e.Address] == nil {
					addressAccts[e.Address] = make(map[string]struct{})
				}
				addressAccts[e.Address][e.Account] = struct{}{}
			}
		case events.KindRateLimitExceeded:
			if e.Address != "" {
				addressTrips[e.Address]++
			}
		}
	}

	var findings []Finding

	for account, addrs := range accountAddrs {
		if n := len(addrs); n >= cfg.AccountAddressFanout {
			findings = append(findings, Finding{
				Pattern: PatternAccountFanout,
				Account: account,
				Count:   int64(n),
				Detail:  fmt.Sprintf("failures from %d distinct addresses", n),
			})
		}
	}
	for address, accts := range addressAccts {
		if n := len(accts); n >= cfg.AddressAccountFanout {
			findings = append(findings, Finding{
				Pattern: PatternAddressFanout,
				Address: address,
				Count:   int64(n),
				Detail:  fmt.Sprintf("failures against %d distinct accounts", n),
			})
		}
	}
	for address, trips := range addressTrips {
		if trips >= int64(cfg.AddressRateTrips) {
			findings = append(findings, Finding{
				Pattern: PatternAddressTrips,
				Address: address,
				Count:   trips,
				Detail:  fmt.Sprintf("%d rate-limit denials", trips),
			})
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Pattern != findings[j].Pattern {
			return findings[i].Pattern < findings[j].Pattern
		}
		if findings[i].Account != findings[j].Account {
			return findings[i].Account < findings[j].Account
		}
		return findings[i].Address < findings[j].Address
	})

	return findings
}

// Report is the periodic security summary (the weekly report of the
// original deployment, cadence left to the scheduler).
type Report struct {
	Since        time.Time                 `json:"since"`
	Until        time.Time                 `json:"until"`
	TotalEvents  int64                     `json:"total_events"`
	ByKind       map[events.Kind]int64     `json:"by_kind"`
	BySeverity   map[events.Severity]int64 `json:"by_severity"`
	TopAddresses []AddressCount            `json:"top_addresses,omitempty"`
	TopAccounts  []AccountCount            `json:"top_accounts,omitempty"`
	Findings     []Finding                 `json:"findings,omitempty"`
}

// ReportInput carries one bounded event read plus thresholds.
type ReportInput struct {
	Since     time.Time
	Until     time.Time
	Events    []events.Event
	TopN      int
	Suspicion SuspicionConfig
}

// BuildReport aggregates events into the periodic summary. Pure function.
func BuildReport(input ReportInput) Report {
	report := Report{
		Since:      input.Since,
		Until:      input.Until,
		ByKind:     make(map[events.Kind]int64, 16),
		BySeverity: make(map[events.Severity]int64, 4),
	}

	addrCounts := make(map[string]int64)
	acctCounts := make(map[string]int64)

	for _, e := range input.Events {
		report.TotalEvents++
		report.ByKind[e.Kind]++

		severity := e.Severity
		if severity == "" {
			severity = events.DefaultSeverity(e.Kind)
		}
		report.BySeverity[severity]++

		if !isOffense(e.Kind) {
			continue
		}
		if e.Address != "" {
			addrCounts[e.Address]++
		}
		if e.Account != "" {
			acctCounts[e.Account]++
		}
	}

	report.TopAddresses = topAddresses(addrCounts, input.TopN)
	report.TopAccounts = topAccounts(acctCounts, input.TopN)
	report.Findings = FindSuspicious(input.Events, input.Suspicion)

	return report
}

func isOffense(kind events.Kind) bool {
	switch kind {
	case events.KindLoginFailed, events.KindOTPFailed,
		events.KindRateLimitExceeded, events.KindAccountLocked,
		events.KindIPBlocked, events.KindSuspiciousActivity:
		return true
	default:
		return false
	}
}

func topAddresses(counts map[string]int64, n int) []AddressCount {
	if len(counts) == 0 {
		return nil
	}
	out := make([]AddressCount, 0, len(counts))
	for addr, count := range counts {
		out = append(out, AddressCount{Address: addr, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Address < out[j].Address
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func topAccounts(counts map[string]int64, n int) []AccountCount {
	if len(counts) == 0 {
		return nil
	}
	out := make([]AccountCount, 0, len(counts))
	for account, count := range counts {
		out = append(out, AccountCount{Account: account, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Account < out[j].Account
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
