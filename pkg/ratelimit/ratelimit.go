package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket 토큰 버킷. 초당 rate 만큼 (소수 허용) 채워지고 capacity를 넘지 않음
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	rate       float64
	lastRefill time.Time
	now        func() time.Time
}

// NewTokenBucket 가득 찬 상태의 버킷 생성
func NewTokenBucket(capacity int, rate float64) *TokenBucket {
	return newTokenBucket(capacity, rate, time.Now)
}

func newTokenBucket(capacity int, rate float64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		rate:       rate,
		lastRefill: now(),
		now:        now,
	}
}

// Allow 토큰 1개 소비
func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1)
}

// AllowN 토큰 n개가 있으면 소비하고 true
func (tb *TokenBucket) AllowN(n int) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

// Remaining 남은 토큰 수 (내림)
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return int(tb.tokens)
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// full 가득 찬 상태인지 (정리 대상 판별용)
func (tb *TokenBucket) full() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return tb.tokens >= tb.capacity
}

// RateLimiter 키(사용자 ID, IP 등)별 토큰 버킷
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*TokenBucket
	capacity int
	rate     float64
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter 키별 Rate Limiter 생성. 백그라운드에서 가득 찬 버킷을 정리하므로 Stop 필요
func NewRateLimiter(capacity int, rate float64) *RateLimiter {
	rl := &RateLimiter{
		buckets:  make(map[string]*TokenBucket),
		capacity: capacity,
		rate:     rate,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	go rl.cleanupLoop(10 * time.Minute)

	return rl
}

// Allow key의 요청 허용 여부
func (rl *RateLimiter) Allow(key string) bool {
	return rl.bucket(key).Allow()
}

// Remaining key에 남은 요청 수
func (rl *RateLimiter) Remaining(key string) int {
	return rl.bucket(key).Remaining()
}

// Capacity 버킷 크기
func (rl *RateLimiter) Capacity() int {
	return rl.capacity
}

func (rl *RateLimiter) bucket(key string) *TokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = newTokenBucket(rl.capacity, rl.rate, rl.now)
		rl.buckets[key] = b
	}
	return b
}

// Reset key의 버킷 제거
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, key)
}

// Len 활성 버킷 수
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Stop 정리 고루틴 종료
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

// cleanup 가득 찬 버킷은 새로 만든 것과 같으므로 제거
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, b := range rl.buckets {
		if b.full() {
			delete(rl.buckets, key)
		}
	}
}
