package distributed

import (
	"context"
	"errors"
	"time"

	"github.com/chessedu/chessedu-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("lock not acquired")
	ErrLockNotHeld     = errors.New("lock not held")
)

// Lua 스크립트: 자신이 획득한 락만 해제
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// RedisLock Redis 기반 분산 락
type RedisLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

// RedisLockManager Redis 분산 락 관리자. 여러 서버 프로세스가 같은 게임을
// 동시에 변경하지 못하도록 게임 ID 단위로 락을 건다.
type RedisLockManager struct {
	client        *redis.Client
	keyPrefix     string
	ttl           time.Duration
	maxRetries    int
	retryInterval time.Duration
}

// NewRedisLockManager Redis Lock Manager 생성
func NewRedisLockManager(client *redis.Client, ttl time.Duration, maxRetries int) *RedisLockManager {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &RedisLockManager{
		client:        client,
		keyPrefix:     "lock:game:",
		ttl:           ttl,
		maxRetries:    maxRetries,
		retryInterval: 20 * time.Millisecond,
	}
}

// AcquireLock 분산 락 획득 시도
func (m *RedisLockManager) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (*RedisLock, error) {
	// SET NX (Not Exists) 명령으로 원자적 락 획득
	success, err := m.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return nil, err
	}

	if !success {
		return nil, ErrLockNotAcquired
	}

	return &RedisLock{
		client: m.client,
		key:    key,
		value:  value,
		ttl:    ttl,
	}, nil
}

// TryLockWithRetry 재시도를 통한 락 획득
func (m *RedisLockManager) TryLockWithRetry(
	ctx context.Context,
	key, value string,
	ttl time.Duration,
	maxRetries int,
	retryInterval time.Duration,
) (*RedisLock, error) {
	for i := 0; i < maxRetries; i++ {
		lock, err := m.AcquireLock(ctx, key, value, ttl)
		if err == nil {
			return lock, nil
		}

		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}

		// 재시도 전 대기
		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryInterval):
			}
		}
	}

	return nil, ErrLockNotAcquired
}

// Lock 게임 ID 단위 락 (service.GameLocker 구현)
func (m *RedisLockManager) Lock(ctx context.Context, gameID string) (func(), error) {
	lock, err := m.TryLockWithRetry(ctx, m.keyPrefix+gameID, uuid.NewString(), m.ttl, m.maxRetries, m.retryInterval)
	if err != nil {
		return nil, err
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			// TTL 만료로 이미 풀렸을 수 있음
			logger.Warn("Failed to release game lock", "key", lock.key, "error", err)
		}
	}, nil
}

// Release 락 해제 (Lua 스크립트로 안전하게)
func (l *RedisLock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Int()
	if err != nil {
		return err
	}

	if result == 0 {
		return ErrLockNotHeld
	}

	return nil
}
