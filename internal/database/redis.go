package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/config"
	zaplogrus "github.com/pixelbuilders001/whydesigns-backend-server/internal/logging/zaplogrus"
	"github.com/redis/go-redis/v9"
)

// incrWindowScript increments a counter and starts its TTL on the first hit,
// so a window is never extended by later increments.
var incrWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisClient wraps a Redis client with the counter and marker primitives the
// OTP guard and rate limiting use.
type RedisClient struct {
	Client *redis.Client
}

// NewRedisConnection connects with up to attempts pings, backing off between them.
func NewRedisConnection(ctx context.Context, cfg config.RedisConfig, attempts int) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	rdb.AddHook(RedisSentryHook{})

	err := retryConnect(ctx, "Redis", attempts, linearBackoff(500*time.Millisecond), func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &RedisClient{Client: rdb}, nil
}

func (r *RedisClient) Close() {
	if r == nil || r.Client == nil {
		return
	}
	if err := r.Client.Close(); err != nil {
		zaplogrus.WithError(err).Error("Error closing Redis client")
		return
	}
	zaplogrus.Info("Redis connection closed")
}

func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return r.Client.Ping(ctx).Err()
}

// IncrementWindow increments key and returns the new count. The key expires
// window after its first increment.
func (r *RedisClient) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	if r == nil || r.Client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	if key == "" {
		return 0, fmt.Errorf("counter key cannot be empty")
	}
	if window <= 0 {
		return 0, fmt.Errorf("counter window must be positive")
	}
	return incrWindowScript.Run(ctx, r.Client, []string{key}, window.Milliseconds()).Int64()
}

// SetIfAbsent stores a marker for ttl and reports whether it was newly set.
func (r *RedisClient) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if r == nil || r.Client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if key == "" {
		return false, fmt.Errorf("marker key cannot be empty")
	}
	if ttl <= 0 {
		return false, fmt.Errorf("marker ttl must be positive")
	}
	return r.Client.SetNX(ctx, key, "1", ttl).Result()
}

// TTL returns the remaining lifetime of key, or zero when it does not exist.
func (r *RedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	if r == nil || r.Client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	d, err := r.Client.PTTL(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if len(keys) == 0 {
		return nil
	}
	return r.Client.Del(ctx, keys...).Err()
}
