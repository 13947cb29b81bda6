package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimitInfo is the limiter state reported in response headers.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// KeyFunc extracts the rate limit key; defaults to the client IP.
	KeyFunc   func(c *gin.Context) string
	SkipPaths []string
	// IdleTTL drops the limiter of a client not seen for this long.
	IdleTTL time.Duration
	// CleanupInterval runs the eviction janitor; 0 evicts lazily.
	CleanupInterval time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		SkipPaths:         []string{"/healthz", "/readyz", "/metrics"},
		IdleTTL:           10 * time.Minute,
		CleanupInterval:   5 * time.Minute,
	}
}

// Limiter keeps one token bucket per client key.
type Limiter struct {
	limiters *gocache.Cache
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

func NewLimiter(requestsPerSecond float64, burst int, idleTTL, cleanup time.Duration) *Limiter {
	if burst <= 0 {
		burst = int(math.Ceil(requestsPerSecond))
		if burst < 1 {
			burst = 1
		}
	}
	if idleTTL <= 0 {
		idleTTL = gocache.NoExpiration
	}
	return &Limiter{
		limiters: gocache.New(idleTTL, cleanup),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (l *Limiter) get(key string) (*rate.Limiter, rate.Limit, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.limiters.Get(key); ok {
		l.limiters.SetDefault(key, v)
		return v.(*rate.Limiter), l.rate, l.burst
	}
	lim := rate.NewLimiter(l.rate, l.burst)
	l.limiters.SetDefault(key, lim)
	return lim, l.rate, l.burst
}

// SetRate changes the limit for every client. Existing buckets are dropped
// and start full.
func (l *Limiter) SetRate(requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(requestsPerSecond)))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rate = rate.Limit(requestsPerSecond)
	l.burst = burst
	l.limiters.Flush()
}

// Allow takes one token from key's bucket.
func (l *Limiter) Allow(key string) (bool, RateLimitInfo) {
	lim, limit, burst := l.get(key)
	now := time.Now()
	ok := lim.AllowN(now, 1)

	tokens := lim.TokensAt(now)
	info := RateLimitInfo{Limit: burst, Remaining: int(math.Max(0, math.Floor(tokens)))}
	if tokens < 1 && limit > 0 {
		wait := time.Duration((1 - tokens) / float64(limit) * float64(time.Second))
		info.ResetAt = now.Add(wait)
	} else {
		info.ResetAt = now
	}
	return ok, info
}

// Len is the number of tracked clients.
func (l *Limiter) Len() int { return l.limiters.ItemCount() }

// RateLimit rejects requests over the limit with 429 and Retry-After.
func RateLimit(l *Limiter, cfg RateLimitConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		allowed, info := l.Allow(keyFunc(c))
		c.Header("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))
		if !allowed {
			retry := int(math.Ceil(time.Until(info.ResetAt).Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    "COMMON_007",
				"message": "rate limit exceeded, please retry later",
			})
			return
		}
		c.Next()
	}
}
