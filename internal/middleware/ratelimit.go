package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimit enforces a per-client-IP token bucket of requestsPerMinute with
// the given burst.
func RateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	rl := newIPRateLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)

	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rateLimitEntry
	rateVal  rate.Limit
	burst    int
}

type rateLimitEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(r rate.Limit, burst int) *ipRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipRateLimiter{
		limiters: make(map[string]*rateLimitEntry),
		rateVal:  r,
		burst:    burst,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[ip]
	if !ok {
		if len(l.limiters) >= maxTrackedClients {
			l.cleanup()
		}
		e = &rateLimitEntry{limiter: rate.NewLimiter(l.rateVal, l.burst)}
		l.limiters[ip] = e
	}
	e.lastSeen = time.Now()

	return e.limiter.Allow()
}

// cleanup must be called with l.mu held.
func (l *ipRateLimiter) cleanup() {
	cutoff := time.Now().Add(-clientIdleTTL)
	for ip, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}
