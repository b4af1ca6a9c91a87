package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter_Window(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newMemoryRateLimiter(func() time.Time { return now })

	assert.True(t, rl.Allow("k", 2, time.Minute).Allowed)
	assert.True(t, rl.Allow("k", 2, time.Minute).Allowed)

	decision := rl.Allow("k", 2, time.Minute)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 2, decision.Count)

	// Other keys have their own budget.
	assert.True(t, rl.Allow("other", 2, time.Minute).Allowed)

	now = now.Add(61 * time.Second)
	decision = rl.Allow("k", 2, time.Minute)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 1, decision.Count)
}

func TestMemoryRateLimiter_ZeroLimitAllows(t *testing.T) {
	rl := newMemoryRateLimiter(time.Now)
	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("k", 0, time.Minute).Allowed)
	}
	assert.Empty(t, rl.entries)
}

func TestMemoryRateLimiter_Cleanup(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newMemoryRateLimiter(func() time.Time { return now })
	rl.Allow("old", 5, time.Second)
	rl.Allow("fresh", 5, time.Hour)

	rl.cleanup(now.Add(time.Minute))

	assert.NotContains(t, rl.entries, "old")
	assert.Contains(t, rl.entries, "fresh")
}

func TestMemoryRateLimiter_CloseIsIdempotent(t *testing.T) {
	rl := NewMemoryRateLimiter()
	assert.NotPanics(t, func() {
		rl.Close()
		rl.Close()
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewMemoryRateLimiter()
	defer limiter.Close()
	metrics := NewMetrics()

	router := gin.New()
	router.POST("/login", RateLimit(limiter, 2, time.Minute, metrics), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send().Code)
	w := send()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = send()
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Too many requests, please try again later."}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	exposition := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(exposition, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(exposition.Body.String(), `studytrack_api_rate_limit_hits_total{route="/login"} 1`))
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", RateLimit(nil, 1, time.Minute, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
