// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/ids"
)

type RateLimitConfig struct {
	Limit   redis_rate.Limit
	KeyFunc func(*http.Request) string
	// Skip exempts requests such as health probes and metric scrapes.
	Skip func(*http.Request) bool
}

// counter is the shared redis limiter when configured, with the in-process
// limiter behind it for when redis is absent or failing.
type counter struct {
	redis *redis_rate.Limiter
	local *localLimiter
}

func newCounter(rdb *redis.Client) *counter {
	c := &counter{local: newLocalLimiter()}
	if rdb != nil {
		c.redis = redis_rate.NewLimiter(rdb)
	}
	return c
}

func (c *counter) allow(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
) *redis_rate.Result {
	if c.redis != nil {
		res, err := c.redis.Allow(ctx, core.RedisKey("ratelimit", key), limit)
		if err == nil {
			return res
		}
		slog.Debug("redis rate limit unavailable, counting locally",
			"error", err,
		)
	}
	return c.local.allow(key, limit)
}

type RateLimiter struct {
	counter *counter
	config  RateLimitConfig
}

// NewRateLimiter counts in redis when rdb is set and in process otherwise.
// Redis errors fall back to the in-process limiter.
func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	return &RateLimiter{counter: newCounter(rdb), config: cfg}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.config.Skip != nil && rl.config.Skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		res := rl.counter.allow(r.Context(), rl.config.KeyFunc(r), rl.config.Limit)
		setRateLimitHeaders(w, res, rl.config.Limit)

		if res.Allowed == 0 {
			writeRateLimited(w, res)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RoleRateLimiter applies a per-role limit keyed by user and route. It must
// run after Authenticator; roles without an entry use def.
func RoleRateLimiter(
	rdb *redis.Client,
	limits map[string]redis_rate.Limit,
	def redis_rate.Limit,
) func(http.Handler) http.Handler {
	c := newCounter(rdb)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetUserRole(r.Context())
			limit, ok := limits[role]
			if !ok {
				limit = def
			}

			res := c.allow(r.Context(), KeyByUserAndEndpoint(r), limit)
			w.Header().Set("X-RateLimit-Role", role)
			setRateLimitHeaders(w, res, limit)

			if res.Allowed == 0 {
				writeRateLimited(w, res)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SkipOperational exempts the probe and scrape endpoints mounted at the
// router root.
func SkipOperational(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/livez", "/readyz", "/metrics":
		return true
	}
	return false
}

// KeyByIP trusts the right-most X-Forwarded-For hop, the one appended by
// our own proxy.
func KeyByIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hop := xff
		if i := strings.LastIndexByte(xff, ','); i >= 0 {
			hop = xff[i+1:]
		}
		return "ip:" + strings.TrimSpace(hop)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return "ip:" + xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func KeyByUserAndEndpoint(r *http.Request) string {
	who := KeyByIP(r)
	if userID := GetUserID(r.Context()); userID != "" {
		who = "user:" + userID
	}
	return who + ":" + r.Method + ":" + normalizeEndpoint(r.URL.Path)
}

// normalizeEndpoint collapses generated ids in paths so one limit covers
// every donor or donation resource.
func normalizeEndpoint(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if ids.IsGenerated(part) {
			parts[i] = "{id}"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func setRateLimitHeaders(
	w http.ResponseWriter,
	res *redis_rate.Result,
	limit redis_rate.Limit,
) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(
		time.Now().Add(res.ResetAfter).Unix(), 10))
	h.Set("RateLimit-Policy",
		fmt.Sprintf("%d;w=%d", limit.Rate, int(limit.Period.Seconds())))
}

func writeRateLimited(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := max(int(res.RetryAfter.Seconds()), 1)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	core.JSONError(w, core.RateLimitedError(retryAfter))
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   rate,
		Burst:  burst,
		Period: time.Minute,
	}
}
