package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// 원자적 토큰 버킷 (조회 → 리필 → 소비 → 저장)
var tokenBucketScript = redis.NewScript(`
	local tokens_key = KEYS[1] .. ":tokens"
	local timestamp_key = KEYS[1] .. ":timestamp"
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local tokens = tonumber(redis.call('GET', tokens_key))
	local last_update = tonumber(redis.call('GET', timestamp_key))

	if tokens == nil or last_update == nil then
		tokens = limit
		last_update = now
	end

	local elapsed = math.max(0, now - last_update)
	local new_tokens = math.min(limit, tokens + (elapsed * limit / window))

	local allowed = 0
	if new_tokens >= 1 then
		new_tokens = new_tokens - 1
		allowed = 1
	end

	redis.call('SET', tokens_key, tostring(new_tokens), 'EX', window * 2)
	redis.call('SET', timestamp_key, tostring(now), 'EX', window * 2)

	return {allowed, math.floor(new_tokens), now + window}
`)

// RedisRateLimiter 여러 서버 인스턴스가 공유하는 Redis 기반 Rate Limiter
type RedisRateLimiter struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// NewRedisRateLimiter 공유 Redis 클라이언트로 생성. keyPrefix 기본값 "ratelimit:"
func NewRedisRateLimiter(client *redis.Client, keyPrefix string) *RedisRateLimiter {
	if keyPrefix == "" {
		keyPrefix = "ratelimit:"
	}
	return &RedisRateLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// RateLimitInfo Rate Limit 상세 정보
type RateLimitInfo struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"resetTime"`
}

// Allow window 동안 limit 회까지 허용 (window는 초 단위로 내림, 최소 1초)
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitInfo, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("invalid rate limit: %d", limit)
	}
	windowSec := int64(window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}

	result, err := tokenBucketScript.Run(ctx, r.client,
		[]string{r.keyPrefix + key},
		limit, windowSec, r.now().Unix(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit script failed: %w", err)
	}
	if len(result) < 3 {
		return nil, fmt.Errorf("invalid rate limit script result: %v", result)
	}

	return &RateLimitInfo{
		Allowed:   result[0] == 1,
		Limit:     limit,
		Remaining: int(result[1]),
		ResetTime: time.Unix(result[2], 0),
	}, nil
}

// Reset 특정 키의 Rate Limit 초기화
func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	redisKey := r.keyPrefix + key

	pipe := r.client.Pipeline()
	pipe.Del(ctx, redisKey+":tokens")
	pipe.Del(ctx, redisKey+":timestamp")
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}

	return nil
}
