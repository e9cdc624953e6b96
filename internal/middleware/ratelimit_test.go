package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/edulane/edulane-backend/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitRouter(t *testing.T, limit int) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { rdb.Close() })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", AuthRateLimit(rdb, limit), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, m
}

func TestAuthRateLimitBlocksOverLimit(t *testing.T) {
	r, _ := newRateLimitRouter(t, 2)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAuthRateLimitCounterAlwaysExpires(t *testing.T) {
	r, m := newRateLimitRouter(t, 1)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	}

	// httptest requests come from 192.0.2.1.
	key := config.RedisKey.AuthRateLimitKey("192.0.2.1")
	require.True(t, m.Exists(key))
	assert.Greater(t, m.TTL(key), time.Duration(0), "the counter key must always carry a TTL")

	// Once the window lapses the client is admitted again.
	m.FastForward(authRateLimitWindow)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
