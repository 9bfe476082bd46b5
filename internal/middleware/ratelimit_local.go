// AngelaMos | 2026
// ratelimit_local.go

package middleware

import (
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"
)

const (
	sweepInterval = 5 * time.Minute
	idleTTL       = 10 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter is a token bucket per key, used when redis is not
// configured or not answering. Idle buckets are swept periodically.
type localLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

func newLocalLimiter() *localLimiter {
	l := &localLimiter{buckets: make(map[string]*bucket)}
	go l.sweep()
	return l
}

func (l *localLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for now := range ticker.C {
		l.mu.Lock()
		for key, b := range l.buckets {
			if now.Sub(b.lastSeen) > idleTTL {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) *redis_rate.Result {
	perSec := float64(limit.Rate) / limit.Period.Seconds()
	interval := time.Duration(float64(time.Second) / perSec)
	now := time.Now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(perSec), limit.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)
	remaining := max(int(b.limiter.TokensAt(now)), 0)
	l.mu.Unlock()

	res := &redis_rate.Result{
		Limit:      limit,
		Remaining:  remaining,
		RetryAfter: -1,
		ResetAfter: interval,
	}
	if allowed {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	return res
}
