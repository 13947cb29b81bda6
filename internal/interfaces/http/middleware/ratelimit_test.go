package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	l := NewLimiter(1, 2, cfg.IdleTTL, 0)
	r := newEngine(RateLimit(l, cfg))

	for i := 0; i < 2; i++ {
		w := serve(r, http.MethodGet, "/sessions/abc", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}
	w := serve(r, http.MethodGet, "/sessions/abc", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "COMMON_007")
}

func TestRateLimit_SkipsProbesAndSeparatesClients(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.KeyFunc = func(c *gin.Context) string { return c.GetHeader("X-Client") }
	l := NewLimiter(1, 1, cfg.IdleTTL, 0)
	r := newEngine(RateLimit(l, cfg))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz", nil).Code)
	}
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/sessions/x", map[string]string{"X-Client": "a"}).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/sessions/x", map[string]string{"X-Client": "b"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/sessions/x", map[string]string{"X-Client": "a"}).Code)
	assert.Equal(t, 2, l.Len())
}

func TestLimiter_SetRateResetsBuckets(t *testing.T) {
	l := NewLimiter(1, 1, 0, 0)
	ok, _ := l.Allow("a")
	assert.True(t, ok)
	ok, _ = l.Allow("a")
	assert.False(t, ok)

	l.SetRate(1, 3)
	assert.Equal(t, 0, l.Len())
	for i := 0; i < 3; i++ {
		ok, info := l.Allow("a")
		assert.True(t, ok)
		assert.Equal(t, 3, info.Limit)
	}
	ok, _ = l.Allow("a")
	assert.False(t, ok)
}
