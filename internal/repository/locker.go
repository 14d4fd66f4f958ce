package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studiobook/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("session lock not acquired")

// NewRedisClient builds a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

// RedisSessionLocker serializes webhook deliveries per checkout session
// across process instances using a per-session Redis key.
type RedisSessionLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionLocker(client *redis.Client, ttl time.Duration) *RedisSessionLocker {
	return &RedisSessionLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *RedisSessionLocker) WithSessionLock(ctx context.Context, sessionID string, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:session:%s", sessionID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

// The lock is released only when still held by this call's token, so an
// expired lock reacquired by another instance is never deleted here.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *RedisSessionLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release session lock: %w", err)
	}
	return nil
}
