package middleware

import (
	"net/http"
	"time"

	"github.com/edulane/edulane-backend/internal/config"
	"github.com/edulane/edulane-backend/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const authRateLimitWindow = time.Minute

// AuthRateLimit limits login attempts per client IP using a fixed one-minute
// window in Redis. The INCR and the expiry travel in one pipeline, with the
// expiry applied only when the key has none yet, so the counter can never be
// left behind without a TTL. On Redis failure the request is allowed
// through — the limiter protects against brute force, it is not an
// availability gate.
func AuthRateLimit(rdb *redis.Client, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := config.RedisKey.AuthRateLimitKey(c.ClientIP())
		ctx := c.Request.Context()

		var incr *redis.IntCmd
		_, err := rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, authRateLimitWindow)
			return nil
		})
		if err != nil {
			c.Next()
			return
		}

		if incr.Val() > int64(limit) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
