// Package middleware holds the gin middleware of the API: authentication,
// role gates, rate limiting, request logging and Sentry.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	RateLimitHeader          = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
	RateLimitResetHeader     = "X-RateLimit-Reset"
	RetryAfterHeader         = "Retry-After"
)

// RateLimitConfig defines one limiter: how many requests a key may make per
// window, and how the key is derived.
type RateLimitConfig struct {
	// Name prefixes the Redis keys so limiters do not share counters.
	Name     string
	Requests int
	Window   time.Duration
	KeyFunc  func(*gin.Context) string
	SkipFunc func(*gin.Context) bool
}

// DefaultRateLimitConfig allows 100 requests a minute per client IP and
// skips the probe endpoints.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Name:     "global",
		Requests: 100,
		Window:   time.Minute,
		KeyFunc:  KeyByIP,
		SkipFunc: skipProbes,
	}
}

// OTPRateLimitConfig is the stricter limiter put in front of the endpoints
// that send or check one-time codes.
func OTPRateLimitConfig(requests int, window time.Duration) RateLimitConfig {
	if requests <= 0 {
		requests = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return RateLimitConfig{
		Name:     "otp",
		Requests: requests,
		Window:   window,
		KeyFunc:  KeyByIPAndPath,
	}
}

func KeyByIP(c *gin.Context) string { return c.ClientIP() }

// KeyByIPAndPath counts each route separately for a client.
func KeyByIPAndPath(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return c.ClientIP() + ":" + path
}

func skipProbes(c *gin.Context) bool {
	switch c.Request.URL.Path {
	case "/health", "/ready", "/live":
		return true
	}
	return false
}

// RateLimiter counts requests in fixed windows, in Redis when available and
// in process otherwise.
type RateLimiter struct {
	config RateLimitConfig
	redis  *redis.Client
	logger *zap.Logger

	mu       sync.Mutex
	localMap map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	count     int
	resetTime time.Time
}

func NewRateLimiter(config RateLimitConfig, redisClient *redis.Client, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.KeyFunc == nil {
		config.KeyFunc = KeyByIP
	}
	if config.Name == "" {
		config.Name = "global"
	}
	return &RateLimiter{
		config:   config,
		redis:    redisClient,
		logger:   logger,
		localMap: make(map[string]*rateLimitEntry),
	}
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.config.SkipFunc != nil && rl.config.SkipFunc(c) {
			c.Next()
			return
		}

		key := rl.config.KeyFunc(c)
		allowed, remaining, resetTime, err := rl.checkAndUpdate(c.Request.Context(), key)
		if err != nil {
			// Fail open: a Redis outage must not take the API down.
			rl.logger.Error("Rate limit check failed", zap.Error(err), zap.String("limiter", rl.config.Name), zap.String("key", key))
			c.Next()
			return
		}

		c.Header(RateLimitHeader, strconv.Itoa(rl.config.Requests))
		c.Header(RateLimitRemainingHeader, strconv.Itoa(remaining))
		c.Header(RateLimitResetHeader, strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			retryAfter := int64(time.Until(resetTime).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header(RetryAfterHeader, strconv.FormatInt(retryAfter, 10))
			rl.logger.Warn("Rate limit exceeded", zap.String("limiter", rl.config.Name), zap.String("key", key))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests, please try again later.",
				"errors":  gin.H{"retryAfter": retryAfter},
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) redisKey(key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", rl.config.Name, key)
}

func (rl *RateLimiter) checkAndUpdate(ctx context.Context, key string) (bool, int, time.Time, error) {
	if rl.redis != nil {
		return rl.checkAndUpdateRedis(ctx, key)
	}
	return rl.checkAndUpdateLocal(key)
}

// rateLimitScript increments the window counter unless it is already at the
// limit, and returns {allowed, remaining, ttl}.
var rateLimitScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local limit = tonumber(ARGV[1])
if current >= limit then
  return {0, 0, redis.call("TTL", KEYS[1])}
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return {1, limit - current, redis.call("TTL", KEYS[1])}
`)

func (rl *RateLimiter) checkAndUpdateRedis(ctx context.Context, key string) (bool, int, time.Time, error) {
	windowSeconds := int(rl.config.Window.Seconds())
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	values, err := rateLimitScript.Run(ctx, rl.redis, []string{rl.redisKey(key)}, rl.config.Requests, windowSeconds).Int64Slice()
	if err != nil {
		return false, 0, time.Time{}, err
	}
	if len(values) != 3 {
		return false, 0, time.Time{}, fmt.Errorf("unexpected rate limit script result: %v", values)
	}

	ttl := values[2]
	if ttl < 0 {
		ttl = int64(windowSeconds)
	}
	return values[0] == 1, int(values[1]), time.Now().Add(time.Duration(ttl) * time.Second), nil
}

func (rl *RateLimiter) checkAndUpdateLocal(key string) (bool, int, time.Time, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if len(rl.localMap) > 1000 {
		for k, entry := range rl.localMap {
			if now.After(entry.resetTime) {
				delete(rl.localMap, k)
			}
		}
	}

	entry, exists := rl.localMap[key]
	if !exists || now.After(entry.resetTime) {
		entry = &rateLimitEntry{resetTime: now.Add(rl.config.Window)}
		rl.localMap[key] = entry
	}
	if entry.count >= rl.config.Requests {
		return false, 0, entry.resetTime, nil
	}
	entry.count++
	return true, rl.config.Requests - entry.count, entry.resetTime, nil
}

// Reset clears the counter of key.
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	if rl.redis != nil {
		return rl.redis.Del(ctx, rl.redisKey(key)).Err()
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.localMap, key)
	return nil
}
