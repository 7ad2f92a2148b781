package logger_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/common/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID_UsesIncomingHeader(t *testing.T) {
	r := gin.New()
	r.Use(logger.RequestID())

	var seen, fromCtx string
	r.GET("/ping", func(c *gin.Context) {
		seen = logger.GetRequestID(c)
		fromCtx = logger.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(logger.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", fromCtx)
	assert.Equal(t, "req-123", w.Header().Get(logger.RequestIDHeader))
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	r := gin.New()
	r.Use(logger.RequestID())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.NotEmpty(t, w.Header().Get(logger.RequestIDHeader))
}

func TestGetRequestID_Unknown(t *testing.T) {
	assert.Equal(t, "unknown", logger.GetRequestID(context.Background()))
	assert.Equal(t, "abc", logger.GetRequestID(logger.WithContext(context.Background(), "abc")))
}
