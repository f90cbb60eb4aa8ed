// goguard-report prints a one-shot security summary for a running
// deployment: event totals over a window, top offenders, heuristic
// findings, and whatever is locked or blocked right now.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	var (
		redisAddr = flag.String("redis-addr", "", "redis address; falls back to REDIS_ADDR env")
		prefix    = flag.String("prefix", "gg", "redis key prefix the deployment writes under")
		window    = flag.Duration("window", 7*24*time.Hour, "how far back the report looks")
		asJSON    = flag.Bool("json", false, "emit the raw report as JSON")
	)
	flag.Parse()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		fmt.Fprintln(os.Stderr, "redis address required: pass -redis-addr or set REDIS_ADDR")
		os.Exit(2)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{addr},
	})
	defer func() { _ = client.Close() }()

	cfg := goGuard.DefaultConfig()
	cfg.RedisPrefix = *prefix

	guard, err := goGuard.New().
		WithRedis(client).
		WithConfig(cfg).
		WithLogger(logger).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build guard: %v\n", err)
		os.Exit(1)
	}
	defer guard.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	until := time.Now().UTC()
	report, err := guard.Report(ctx, until.Add(-*window), until)
	if err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printReport(report)
}

func printReport(report goGuard.SecurityReport) {
	fmt.Printf("security report %s .. %s\n",
		report.Since.Format(time.RFC3339), report.Until.Format(time.RFC3339))
	fmt.Printf("events: %d\n", report.TotalEvents)

	if len(report.ByKind) > 0 {
		fmt.Println("by kind:")
		for kind, n := range report.ByKind {
			fmt.Printf("  %-28s %d\n", kind, n)
		}
	}

	if len(report.TopAddresses) > 0 {
		fmt.Println("top addresses:")
		for _, a := range report.TopAddresses {
			fmt.Printf("  %-28s %d\n", a.Address, a.Count)
		}
	}
	if len(report.TopAccounts) > 0 {
		fmt.Println("top accounts:")
		for _, a := range report.TopAccounts {
			fmt.Printf("  %-28s %d\n", a.Account, a.Count)
		}
	}

	if len(report.Findings) > 0 {
		fmt.Println("findings:")
		for _, f := range report.Findings {
			fmt.Printf("  %s: %s\n", f.Pattern, f.Detail)
		}
	}

	fmt.Printf("locked accounts now: %d\n", len(report.LockedNow))
	for _, l := range report.LockedNow {
		fmt.Printf("  %-28s level=%d until=%s\n", l.Account, l.Level, l.Until.Format(time.RFC3339))
	}
	fmt.Printf("blocked addresses now: %d\n", len(report.BlockedNow))
	for _, b := range report.BlockedNow {
		fmt.Printf("  %-28s reason=%q until=%s\n", b.Address, b.Reason, b.Until.Format(time.RFC3339))
	}
}
