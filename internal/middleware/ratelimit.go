package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fitcrush/pkg/limits"

	"github.com/gin-gonic/gin"
)

// Limiter decides whether one more request for key fits in the window.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// InMemoryRateLimiter limits requests per key (e.g. IP or user ID).
type InMemoryRateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func NewInMemoryRateLimiter(limit int, window time.Duration) *InMemoryRateLimiter {
	r := &InMemoryRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
	go r.cleanup()
	return r
}

func (r *InMemoryRateLimiter) Allow(_ context.Context, key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	valid := r.prune(r.requests[key], now.Add(-r.window))
	if len(valid) >= r.limit {
		r.requests[key] = valid
		return false
	}
	r.requests[key] = append(valid, now)
	return true
}

func (r *InMemoryRateLimiter) prune(times []time.Time, cutoff time.Time) []time.Time {
	var valid []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}

func (r *InMemoryRateLimiter) cleanup() {
	tick := time.NewTicker(time.Minute)
	for range tick.C {
		r.mu.Lock()
		cutoff := time.Now().Add(-r.window)
		for k, times := range r.requests {
			if valid := r.prune(times, cutoff); len(valid) == 0 {
				delete(r.requests, k)
			} else {
				r.requests[k] = valid
			}
		}
		r.mu.Unlock()
	}
}

// CounterRateLimiter is a fixed-window limiter on a shared counter, so every
// API instance sees the same totals when the counter is Redis.
type CounterRateLimiter struct {
	counter limits.Counter
	limit   int64
	window  time.Duration
}

func NewCounterRateLimiter(counter limits.Counter, limit int, window time.Duration) *CounterRateLimiter {
	return &CounterRateLimiter{counter: counter, limit: int64(limit), window: window}
}

func (r *CounterRateLimiter) Allow(ctx context.Context, key string) bool {
	bucket := time.Now().UnixNano() / int64(r.window)
	n, err := r.counter.Incr(ctx, fmt.Sprintf("rl:%s:%d", key, bucket), r.window)
	if err != nil {
		// Counter outage lets traffic through.
		slog.Warn("rate limit counter unavailable", "error", err)
		return true
	}
	return n <= r.limit
}

// RateLimit returns a middleware that limits by user when authenticated and by
// client IP otherwise.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := GetUserID(c); id != 0 {
			key = fmt.Sprintf("user:%d", id)
		}
		if !limiter.Allow(c.Request.Context(), key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "code": "rate_limited"})
			return
		}
		c.Next()
	}
}
