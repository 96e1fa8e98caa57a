package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// IPRateLimiter hands out one token bucket per client address. Buckets for addresses
// that stay quiet for the idle TTL are evicted by the underlying cache.
type IPRateLimiter struct {
	mu      sync.Mutex
	buckets *cache.Cache
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
}

// NewIPRateLimiter creates a limiter allowing limit events per second with the given burst.
func NewIPRateLimiter(limit rate.Limit, burst int, idleTTL time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		buckets: cache.New(idleTTL, 2*idleTTL),
		limit:   limit,
		burst:   burst,
		idleTTL: idleTTL,
	}
}

// GetLimiter returns the bucket for ip, creating it on first use. Every lookup pushes the
// bucket's expiry back by the idle TTL.
func (l *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets.Get(ip)
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.burst)
	}
	l.buckets.Set(ip, bucket, l.idleTTL)
	return bucket.(*rate.Limiter)
}

// RateLimiter is a middleware for IP-based rate limiting. Rejected requests get 429
// with a Retry-After hint.
func RateLimiter(limit rate.Limit, burst int) gin.HandlerFunc {
	limiter := NewIPRateLimiter(limit, burst, limiterIdleTTL)
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
