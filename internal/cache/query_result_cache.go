// Package cache keeps serialized read results in Redis under deterministic,
// version-aware keys.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	zaplogrus "github.com/pixelbuilders001/whydesigns-backend-server/internal/logging/zaplogrus"
	"github.com/redis/go-redis/v9"
)

const keyVersion = "v1"

// QueryResultCacheStats counts lookups since the cache was created.
type QueryResultCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// QueryResultCache stores JSON encoded results. A nil *QueryResultCache is a
// valid cache that never hits, so callers need no Redis-availability checks.
type QueryResultCache struct {
	redis  *redis.Client
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

func NewQueryResultCache(redisClient *redis.Client, ttl time.Duration) *QueryResultCache {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryResultCache{redis: redisClient, ttl: ttl}
}

// Key builds api:v1:<module>:<action>:hash:<16 hex> from the request
// parameters. Map keys marshal sorted, so equal parameters give equal keys.
func Key(module, action string, query, body any) string {
	payload, err := json.Marshal(struct {
		Query any `json:"query"`
		Body  any `json:"body"`
	}{query, body})
	if err != nil {
		payload = []byte(fmt.Sprintf("%v|%v", query, body))
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("api:%s:%s:%s:hash:%s", keyVersion, module, action, hex.EncodeToString(sum[:])[:16])
}

func modulePattern(module string) string {
	return fmt.Sprintf("api:%s:%s:*", keyVersion, module)
}

// Get decodes the entry at key into dest and reports whether it was found.
// Redis or decoding failures count as misses.
func (c *QueryResultCache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zaplogrus.WithError(err).WithField("key", key).Warn("Query cache read failed")
		}
		c.misses.Add(1)
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		zaplogrus.WithError(err).WithField("key", key).Warn("Query cache entry is corrupt")
		c.misses.Add(1)
		return false
	}

	c.hits.Add(1)
	return true
}

func (c *QueryResultCache) Set(ctx context.Context, key string, value any) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal query cache entry: %w", err)
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set query cache: %w", err)
	}
	c.sets.Add(1)
	return nil
}

// InvalidateModule drops every cached result of module.
func (c *QueryResultCache) InvalidateModule(ctx context.Context, module string) error {
	if c == nil {
		return nil
	}

	iter := c.redis.Scan(ctx, 0, modulePattern(module), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	zaplogrus.WithFields(zaplogrus.Fields{"module": module, "keys": len(keys)}).Debug("Invalidated query cache")
	return nil
}

func (c *QueryResultCache) Stats() QueryResultCacheStats {
	if c == nil {
		return QueryResultCacheStats{}
	}
	return QueryResultCacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Sets: c.sets.Load()}
}

// HitRate is the percentage of lookups served from the cache.
func (c *QueryResultCache) HitRate() float64 {
	stats := c.Stats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0
	}
	return float64(stats.Hits) / float64(total) * 100
}
