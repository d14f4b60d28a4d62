// internals/features/integrations/glpi/lock/run_lock.go
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RunLock guards the single-flight sync. TryAcquire never blocks on a held lease.
type RunLock interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

/* ============================
   In-process lease
============================ */

type LocalRunLock struct {
	mu   sync.Mutex
	held bool
}

func NewLocalRunLock() *LocalRunLock { return &LocalRunLock{} }

func (l *LocalRunLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, false, nil
	}
	l.held = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.held = false
			l.mu.Unlock()
		})
	}, true, nil
}

/* ============================
   Redis lease
============================ */

// glpi:sync:lease → token of the holder, expires after ttl
const redisLeaseKey = "glpi:sync:lease"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLock shares the lease between server instances. The ttl bounds how
// long a crashed holder can block new runs.
type RedisRunLock struct {
	rdb redis.UniversalClient
	key string
	ttl time.Duration
}

func NewRedisRunLock(rdb redis.UniversalClient, ttl time.Duration) *RedisRunLock {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisRunLock{rdb: rdb, key: redisLeaseKey, ttl: ttl}
}

func (l *RedisRunLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire sync lease: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// released even when the run context is already gone
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err()
		})
	}, true, nil
}

// NewRedisClient dials and pings the lease store.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}
