package distributed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

// lockHeld 키 값이 락 소유자 토큰인지 확인
func lockHeld(t *testing.T, client *redis.Client, lock *RedisLock) bool {
	t.Helper()
	value, err := client.Get(context.Background(), lock.key).Result()
	if err == redis.Nil {
		return false
	}
	require.NoError(t, err)
	return value == lock.value
}

func TestRedisLock_AcquireAndRelease(t *testing.T) {
	client, _ := setupRedisClient(t)
	manager := NewRedisLockManager(client, 5*time.Second, 1)
	ctx := context.Background()

	// Lock 획득
	lock, err := manager.AcquireLock(ctx, "test:lock", "instance1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, lock)

	// 동일한 키로 다시 Lock 획득 시도 (실패해야 함)
	lock2, err := manager.AcquireLock(ctx, "test:lock", "instance2", 5*time.Second)
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.Nil(t, lock2)

	// Lock 해제
	require.NoError(t, lock.Release(ctx))

	// 해제 후 다시 획득 가능
	lock3, err := manager.AcquireLock(ctx, "test:lock", "instance3", 5*time.Second)
	assert.NoError(t, err)
	assert.NotNil(t, lock3)
}

func TestRedisLock_ReleaseOnlyOwnLock(t *testing.T) {
	client, mr := setupRedisClient(t)
	manager := NewRedisLockManager(client, time.Second, 1)
	ctx := context.Background()

	lock, err := manager.AcquireLock(ctx, "test:owner", "instance1", time.Second)
	require.NoError(t, err)

	// TTL 만료 후 다른 인스턴스가 획득
	mr.FastForward(2 * time.Second)
	other, err := manager.AcquireLock(ctx, "test:owner", "instance2", 5*time.Second)
	require.NoError(t, err)

	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)

	assert.True(t, lockHeld(t, client, other))
}

func TestRedisLock_TryLockWithRetry(t *testing.T) {
	client, _ := setupRedisClient(t)
	manager := NewRedisLockManager(client, 5*time.Second, 1)
	ctx := context.Background()

	lock1, err := manager.AcquireLock(ctx, "test:retry", "instance1", 5*time.Second)
	require.NoError(t, err)

	// 다른 고루틴에서 100ms 후 Lock 해제
	go func() {
		time.Sleep(100 * time.Millisecond)
		lock1.Release(context.Background())
	}()

	lock2, err := manager.TryLockWithRetry(ctx, "test:retry", "instance2", 5*time.Second, 20, 50*time.Millisecond)
	assert.NoError(t, err)
	assert.NotNil(t, lock2)
}

func TestRedisLockManager_LockSerializesGame(t *testing.T) {
	client, _ := setupRedisClient(t)
	manager := NewRedisLockManager(client, 5*time.Second, 200)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := manager.Lock(ctx, "g1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}

func TestRedisLockManager_LockGivesUp(t *testing.T) {
	client, _ := setupRedisClient(t)
	manager := NewRedisLockManager(client, 5*time.Second, 2)
	ctx := context.Background()

	unlock, err := manager.Lock(ctx, "g1")
	require.NoError(t, err)
	defer unlock()

	_, err = manager.Lock(ctx, "g1")
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	// 다른 게임은 영향 없음
	unlock2, err := manager.Lock(ctx, "g2")
	require.NoError(t, err)
	unlock2()
}
