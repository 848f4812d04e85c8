package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/salonmarlowe/bookings/internal/http/response"
	"github.com/salonmarlowe/bookings/pkg/logger"
)

// RateLimiter is a fixed-window limiter backed by Redis, shared across
// instances. It fails open: an unreachable Redis must not take the booking
// form down with it.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration, prefix string) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.rdb == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.prefix + ":" + clientIP(r)
		count, err := fixedWindowScript.Run(r.Context(), rl.rdb, []string{key}, rl.window.Milliseconds()).Int64()
		if err != nil {
			logger.WarnContext(r.Context(), "Rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if count > int64(rl.limit) {
			response.RateLimit(w, "too many requests, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
