package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
)

// BlockCheck rejects requests from blocked source addresses before the
// handler runs and stamps the client address and user agent onto the
// request context so downstream Guard calls attribute events correctly.
//
// A blocked caller sees only 403; a backend failure denies with 503.
func BlockCheck(guard *goGuard.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if guard == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			address := clientIP(r)
			ctx := goGuard.WithClientIP(r.Context(), address)
			if ua := r.UserAgent(); ua != "" {
				ctx = goGuard.WithUserAgent(ctx, ua)
			}

			status, err := guard.IsBlocked(ctx, address)
			if err != nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}
			if status.Blocked {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit counts one hit per request against the (client address, action)
// window and rejects with 429 and a Retry-After header once the budget is
// spent. Mount it per route group with a distinct action name.
func RateLimit(guard *goGuard.Guard, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if guard == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			address := clientIP(r)
			ctx := goGuard.WithClientIP(r.Context(), address)

			decision, err := guard.Allow(ctx, address, action)
			if err != nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}
			if !decision.Allowed {
				w.Header().Set("Retry-After", retryAfterSeconds(decision.RetryAfter))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func retryAfterSeconds(d time.Duration) string {
	return strconv.FormatInt(int64(math.Ceil(d.Seconds())), 10)
}

// clientIP resolves the caller's address, trusting proxy headers first.
// Deployments without a trusted proxy layer should strip these headers at
// the edge or the block list becomes spoofable.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
