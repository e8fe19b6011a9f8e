package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"rps_arena/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var ErrRedisDisabled = errors.New("redis not configured")

// RateLimiter is a fixed-window limiter backed by Redis INCR/EXPIRE.
// A nil client makes every check pass (fail-open).
type RateLimiter struct {
	client *redis.Client
}

// NewRedisRateLimiter connects to addr. An empty addr or a failed ping leaves
// the limiter disabled so the server stays available.
func NewRedisRateLimiter(addr, password string, db int) *RateLimiter {
	if addr == "" {
		return &RateLimiter{}
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, rate limiting disabled", "addr", addr, "error", err)
		_ = client.Close()
		return &RateLimiter{}
	}
	return &RateLimiter{client: client}
}

func NewRateLimiterWithClient(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func (l *RateLimiter) Enabled() bool {
	return l != nil && l.client != nil
}

// Ping reports whether Redis answers. Used by the readiness probe.
func (l *RateLimiter) Ping(ctx context.Context) error {
	if !l.Enabled() {
		return ErrRedisDisabled
	}
	return l.client.Ping(ctx).Err()
}

func (l *RateLimiter) Close() error {
	if !l.Enabled() {
		return nil
	}
	return l.client.Close()
}

// Limit allows maxRequests per window per client IP and route.
// key format: rl:<window_seconds>:<route>:<ip>
func (l *RateLimiter) Limit(maxRequests int, window time.Duration) gin.HandlerFunc {
	windowKey := strconv.FormatInt(int64(window.Seconds()), 10)

	return func(c *gin.Context) {
		route := c.FullPath()
		if !l.Enabled() {
			c.Next()
			return
		}

		key := "rl:" + windowKey + ":" + route + ":" + c.ClientIP()
		ctx := c.Request.Context()

		val, err := l.client.Incr(ctx, key).Result()
		if err != nil {
			// fail-open
			RLErrors.WithLabelValues(route).Inc()
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}
		if val == 1 {
			l.client.Expire(ctx, key, window)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(route).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		RLRequests.WithLabelValues(route).Inc()
		c.Next()
	}
}
