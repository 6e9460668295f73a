package httpmiddleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterAllow(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter(3, 3)

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, allowed, "request %d within capacity", i)
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, allowed, "capacity exhausted")

	// Other keys keep their own bucket
	allowed, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, allowed)
}

type stubLimiter struct {
	allowed bool
	err     error
}

func (s *stubLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return s.allowed, s.err
}

func limitedRouter(limiter Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/probe", GinMiddleware(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestGinMiddleware(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		limitedRouter(&stubLimiter{allowed: true}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("limited", func(t *testing.T) {
		w := httptest.NewRecorder()
		limitedRouter(&stubLimiter{allowed: false}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
		require.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		w := httptest.NewRecorder()
		limitedRouter(&stubLimiter{err: errors.New("redis down")}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
		require.Equal(t, http.StatusOK, w.Code)
	})
}
