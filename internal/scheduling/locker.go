package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes the count-check-then-insert section for one (doctor,
// date) pair across concurrent webhook invocations.
type Locker interface {
	WithLock(ctx context.Context, doctorID uuid.UUID, date string, fn func(ctx context.Context) error) error
}

func lockKey(doctorID uuid.UUID, date string) string {
	return fmt.Sprintf("lock:schedule:%s:%s", doctorID, date)
}

// RedisLocker guards the critical section with a per-key Redis lease.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker that uses a per (doctor, date) Redis key.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// WithLock runs fn while holding the lease. A held lock is not waited on; the
// caller gets ErrLockNotAcquired and the invocation fails fast.
func (l *RedisLocker) WithLock(ctx context.Context, doctorID uuid.UUID, date string, fn func(ctx context.Context) error) error {
	key := lockKey(doctorID, date)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("scheduling: acquire lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *RedisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("scheduling: release lock: %w", err)
	}
	return nil
}

// MutexLocker serializes within a single process, for deployments without
// Redis and for tests.
type MutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMutexLocker creates an in-process locker.
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{locks: make(map[string]*sync.Mutex)}
}

// WithLock runs fn under the per-key mutex, blocking until it is free.
func (l *MutexLocker) WithLock(ctx context.Context, doctorID uuid.UUID, date string, fn func(ctx context.Context) error) error {
	key := lockKey(doctorID, date)

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}
