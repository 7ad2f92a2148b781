package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusCodeToRange(t *testing.T) {
	assert.Equal(t, "2xx", statusCodeToRange(201))
	assert.Equal(t, "3xx", statusCodeToRange(304))
	assert.Equal(t, "4xx", statusCodeToRange(422))
	assert.Equal(t, "5xx", statusCodeToRange(503))
	assert.Equal(t, "unknown", statusCodeToRange(101))
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core), "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, p := range []string{"/health", "/fail", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	entries := logs.All()
	if assert.Len(t, entries, 2, "health checks are not logged") {
		assert.Equal(t, zap.ErrorLevel, entries[0].Level)
		assert.Equal(t, zap.WarnLevel, entries[1].Level)
	}
}

func TestRateLimitMiddleware_PerTerminal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, rate.Every(time.Hour), 1, time.Minute)
	r := gin.New()
	r.Use(RateLimitMiddleware(rl))
	r.POST("/orders/commit", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(terminal string) int {
		req := httptest.NewRequest(http.MethodPost, "/orders/commit", nil)
		req.Header.Set("X-Terminal-ID", terminal)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("till-1"))
	assert.Equal(t, http.StatusTooManyRequests, send("till-1"))
	assert.Equal(t, http.StatusOK, send("till-2"))
}

func TestCORSMiddleware_RejectsUnknownOrigin(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "http://pos.local")
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/cart", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Origin", "http://pos.local")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://pos.local", w.Header().Get("Access-Control-Allow-Origin"))
}
