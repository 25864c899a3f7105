package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockLua deletes the lock key only if it still carries the caller's token,
// so an expired holder cannot release a lock someone else took over.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// extendLua pushes the lease out only while the caller still holds it.
const extendLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`

const defaultRetryInterval = 25 * time.Millisecond

// RedisConfig holds connection parameters for the Redis client.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a Redis client and pings it to verify connectivity.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

// RedisLocker is a Locker shared by every API replica. Locks are SET NX with
// a TTL that is renewed while the holder is alive; a holder that dies
// releases its keys when the TTL lapses.
type RedisLocker struct {
	rdb           *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	unlockScript  *redis.Script
	extendScript  *redis.Script
	logger        *slog.Logger
}

// NewRedisLocker creates a RedisLocker whose leases last ttl between
// renewals. A nil logger uses slog.Default().
func NewRedisLocker(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{
		rdb:           rdb,
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
		unlockScript:  redis.NewScript(unlockLua),
		extendScript:  redis.NewScript(extendLua),
		logger:        logger,
	}
}

func redisLockKey(key string) string {
	return "bondmarket:lock:" + key
}

// Lock polls SET NX until it wins or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	lk := redisLockKey(key)

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, lk, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w: %w", key, ErrLockHeld, ctx.Err())
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	go l.keepAlive(lk, token, stop)

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			close(stop)

			// Background context: release must succeed even if the caller's
			// context is already cancelled.
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.unlockScript.Run(unlockCtx, l.rdb, []string{lk}, token).Err(); err != nil {
				l.logger.Warn("redis: failed to release lock; it expires with its lease", "key", key, "error", err)
			}
		})
	}
	return unlock, nil
}

// keepAlive renews the lease every third of the TTL until stop is closed or
// the lease is found lost.
func (l *RedisLocker) keepAlive(lk, token string, stop <-chan struct{}) {
	interval := l.ttl / 3
	if interval <= 0 {
		interval = l.retryInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			renewed, err := l.extendScript.Run(ctx, l.rdb, []string{lk}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				l.logger.Warn("redis: failed to renew lock lease", "key", lk, "error", err)
				continue
			}
			if renewed == 0 {
				l.logger.Warn("redis: lock lease lost", "key", lk)
				return
			}
		}
	}
}

var _ Locker = (*RedisLocker)(nil)
