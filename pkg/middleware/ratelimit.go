package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kestrelhq/roster/pkg/httputil"
	"github.com/kestrelhq/roster/pkg/observability"
)

// RateLimiter implements a fixed-window counter in Redis, keyed by client
// address. Join codes are short and guessable, so the submission endpoint
// is throttled.
type RateLimiter struct {
	client  *redis.Client
	limit   int
	window  time.Duration
	prefix  string
	metrics *observability.Metrics
}

// NewRateLimiter creates a rate limiter allowing limit requests per window
// per client.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration, prefix string, metrics *observability.Metrics) *RateLimiter {
	return &RateLimiter{
		client:  client,
		limit:   limit,
		window:  window,
		prefix:  prefix,
		metrics: metrics,
	}
}

// Middleware enforces the limit. Redis failures fail open: availability of
// the join flow is worth more than strict throttling during an outage.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("%s:%s:%d", rl.prefix, clientAddr(r), time.Now().Unix()/int64(rl.window.Seconds()))

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			observability.GetLogger(r.Context()).WithError(err).Warn("rate limiter unavailable, failing open")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, rl.window)
		}

		if count > int64(rl.limit) {
			if rl.metrics != nil {
				rl.metrics.RateLimitedTotal.WithLabelValues(rl.prefix).Inc()
			}
			httputil.WriteTooManyRequests(w, "too many requests, slow down")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
