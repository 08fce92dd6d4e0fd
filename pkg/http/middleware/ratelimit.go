package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// RateLimiter is a per-key token bucket used to throttle the admin
// mutation endpoint.
type RateLimiter struct {
	mu sync.Mutex
	m  map[string]*bucket
}

func NewRateLimiter() *RateLimiter { return &RateLimiter{m: make(map[string]*bucket)} }

// Allow returns true if one token can be consumed for key.
func (l *RateLimiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()
	l.mu.Lock()
	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}
	// refill
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens -= 1
		l.mu.Unlock()
		return true
	}
	l.mu.Unlock()
	return false
}

// RateLimit throttles requests per client IP with the given bucket
// capacity and refill rate. Rejected requests get 429.
func RateLimit(capacity, refillPerSec float64) echo.MiddlewareFunc {
	limiter := NewRateLimiter()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow(c.RealIP(), capacity, refillPerSec) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"status": "ERROR",
					"msg":    "rate limit exceeded",
				})
			}
			return next(c)
		}
	}
}
