package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	xrate "golang.org/x/time/rate"
)

type accountState struct {
	user string
	code string
}

func main() {
	var (
		accounts    = flag.Int("accounts", 5000, "number of accounts to seed with a pending code")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per measured phase")
		pace        = flag.Float64("rate", 0, "target ops/sec across all workers; 0 means unpaced")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "ggload", "redis key prefix")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	guard, err := goGuard.New().
		WithRedis(client).
		WithConfig(loadConfig(*prefix)).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build guard: %v\n", err)
		os.Exit(1)
	}
	defer guard.Close()

	var limiter *xrate.Limiter
	if *pace > 0 {
		limiter = xrate.NewLimiter(xrate.Limit(*pace), *concurrency)
	}

	states := make([]accountState, *accounts)
	fmt.Printf("seeding %d pending codes...\n", *accounts)
	startSeed := time.Now()
	for i := 0; i < *accounts; i++ {
		user := fmt.Sprintf("user-%d", i)
		issued, err := guard.IssueOTP(ctx, user, "load", goGuard.ChannelEmail)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = accountState{user: user, code: issued.Code}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	mismatchStats := runMismatchPhase(ctx, guard, states, *ops, *concurrency, limiter)
	consumeStats := runConsumePhase(ctx, guard, states, *concurrency, limiter)
	allowStats := runAllowPhase(ctx, guard, states, *ops, *concurrency, limiter)

	fmt.Println("---- results ----")
	printStats("mismatch", mismatchStats)
	printStats("consume", consumeStats)
	printStats("allow", allowStats)

	purged, err := guard.RunCleanup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cleanup: %v\n", err)
	}
	snapshot := guard.MetricsSnapshot()
	fmt.Println("---- counters ----")
	fmt.Printf("otp_failed=%d otp_validated=%d rate_allowed=%d store_errors=%d purged_otps=%d events_dropped=%d\n",
		snapshot.Counters[goGuard.MetricOTPFailed],
		snapshot.Counters[goGuard.MetricOTPValidated],
		snapshot.Counters[goGuard.MetricRateAllowed],
		snapshot.Counters[goGuard.MetricStoreErrors],
		purged.OTPsPurged,
		guard.EventsDropped(),
	)
}

// loadConfig is a deliberately permissive profile. Budgets are set so wide
// that the control plane never trips while the hot paths get hammered.
func loadConfig(prefix string) goGuard.Config {
	cfg := goGuard.DefaultConfig()
	cfg.RedisPrefix = prefix
	cfg.OTP.TTL = time.Hour
	cfg.OTP.MaxAttempts = 65535
	cfg.OTP.EnableIssueThrottle = false
	cfg.Rate.Rules = map[string]goGuard.RateRule{"api": {Limit: 1 << 40, Window: time.Hour}}
	cfg.Rate.Default = goGuard.RateRule{Limit: 1 << 40, Window: time.Hour}
	cfg.Lockout.Threshold = 1 << 20
	cfg.IPBlock.Threshold = 1 << 20
	cfg.Events.RetentionDays = 1
	cfg.Events.MaxScan = 1 << 20
	return cfg
}

// runMismatchPhase hammers ValidateOTP with codes that never match. This is
// the attack-shaped hot path: every op runs the full atomic consume script
// and burns one attempt.
func runMismatchPhase(ctx context.Context, guard *goGuard.Guard, states []accountState, ops, concurrency int, limiter *xrate.Limiter) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				if limiter != nil {
					_ = limiter.Wait(ctx)
				}
				state := states[r.Intn(len(states))]
				t0 := time.Now()
				err := guard.ValidateOTP(ctx, state.user, "load", mutateCode(state.code))
				d := time.Since(t0)
				if !errors.Is(err, goGuard.ErrOTPMismatch) {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runConsumePhase validates every seeded code exactly once with the real
// value. One op per account; a second consume would hit the tombstone.
func runConsumePhase(ctx context.Context, guard *goGuard.Guard, states []accountState, concurrency int, limiter *xrate.Limiter) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, len(states))
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(states) {
					return
				}
				if limiter != nil {
					_ = limiter.Wait(ctx)
				}
				state := states[i]
				t0 := time.Now()
				err := guard.ValidateOTP(ctx, state.user, "load", state.code)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runAllowPhase(ctx context.Context, guard *goGuard.Guard, states []accountState, ops, concurrency int, limiter *xrate.Limiter) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				if limiter != nil {
					_ = limiter.Wait(ctx)
				}
				actor := states[r.Intn(len(states))].user
				t0 := time.Now()
				decision, err := guard.Allow(ctx, actor, "api")
				d := time.Since(t0)
				if err != nil || !decision.Allowed {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// mutateCode flips the last digit so the guess is the right shape but can
// never match.
func mutateCode(code string) string {
	if code == "" {
		return "0"
	}
	b := []byte(code)
	last := len(b) - 1
	if b[last] == '0' {
		b[last] = '1'
	} else {
		b[last] = '0'
	}
	return string(b)
}
