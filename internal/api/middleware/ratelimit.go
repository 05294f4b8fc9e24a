package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/chessedu/chessedu-backend/pkg/logger"
	"github.com/chessedu/chessedu-backend/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

// Limiter 키별 요청 허용 판단
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
	Limit() int
}

// memoryLimiter 프로세스 내부 토큰 버킷
type memoryLimiter struct {
	rl *ratelimit.RateLimiter
}

// NewMemoryLimiter 단일 인스턴스용
func NewMemoryLimiter(rl *ratelimit.RateLimiter) Limiter {
	return &memoryLimiter{rl: rl}
}

func (m *memoryLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	allowed := m.rl.Allow(key)
	return allowed, m.rl.Remaining(key), nil
}

func (m *memoryLimiter) Limit() int { return m.rl.Capacity() }

// redisLimiter 인스턴스 간 공유되는 Redis 토큰 버킷
type redisLimiter struct {
	rl     *ratelimit.RedisRateLimiter
	limit  int
	window time.Duration
}

// NewRedisLimiter window 동안 limit 회
func NewRedisLimiter(rl *ratelimit.RedisRateLimiter, limit int, window time.Duration) Limiter {
	return &redisLimiter{rl: rl, limit: limit, window: window}
}

func (r *redisLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	info, err := r.rl.Allow(ctx, key, r.limit, r.window)
	if err != nil {
		return false, 0, err
	}
	return info.Allowed, info.Remaining, nil
}

func (r *redisLimiter) Limit() int { return r.limit }

// DefaultKeyFunc uses user ID if authenticated, otherwise IP address
func DefaultKeyFunc(c *gin.Context) string {
	if userID := c.GetString(ContextUserID); userID != "" {
		return "user:" + userID
	}
	return IPKeyFunc(c)
}

// IPKeyFunc uses only IP address (for public endpoints)
func IPKeyFunc(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// RateLimit Rate Limit 미들웨어. Limiter 오류 시 요청 허용 (fail-open)
func RateLimit(limiter Limiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = DefaultKeyFunc
	}

	return func(c *gin.Context) {
		key := keyFunc(c)

		allowed, remaining, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("Rate limit check failed, allowing request", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"code":    "RATE_LIMITED",
				"message": fmt.Sprintf("Too many requests. Limit: %d", limiter.Limit()),
			})
			return
		}

		c.Next()
	}
}
