package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/database"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
)

// OTPAttemptGuard counts verification attempts and tracks the resend
// cooldown per (user, purpose). It uses Redis when available and an
// in-process map otherwise.
type OTPAttemptGuard struct {
	redis *database.RedisClient

	mu       sync.Mutex
	counters map[string]*guardEntry
	markers  map[string]time.Time
}

type guardEntry struct {
	count     int64
	resetTime time.Time
}

func NewOTPAttemptGuard(redisClient *database.RedisClient) *OTPAttemptGuard {
	if redisClient != nil && redisClient.Client == nil {
		redisClient = nil
	}
	return &OTPAttemptGuard{
		redis:    redisClient,
		counters: make(map[string]*guardEntry),
		markers:  make(map[string]time.Time),
	}
}

func attemptKey(userID int64, purpose models.OTPPurpose) string {
	return fmt.Sprintf("otp:attempts:%d:%s", userID, purpose)
}

func cooldownKey(userID int64, purpose models.OTPPurpose) string {
	return fmt.Sprintf("otp:cooldown:%d:%s", userID, purpose)
}

// Hit records one attempt and returns the number made in the current window.
func (g *OTPAttemptGuard) Hit(ctx context.Context, userID int64, purpose models.OTPPurpose, window time.Duration) (int64, error) {
	key := attemptKey(userID, purpose)
	if g.redis != nil {
		return g.redis.IncrementWindow(ctx, key, window)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	entry, ok := g.counters[key]
	if !ok || now.After(entry.resetTime) {
		entry = &guardEntry{resetTime: now.Add(window)}
		g.counters[key] = entry
	}
	entry.count++
	return entry.count, nil
}

// ResetAttempts clears the attempt counter.
func (g *OTPAttemptGuard) ResetAttempts(ctx context.Context, userID int64, purpose models.OTPPurpose) error {
	key := attemptKey(userID, purpose)
	if g.redis != nil {
		return g.redis.Delete(ctx, key)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.counters, key)
	return nil
}

// StartCooldown reports false when a cooldown for (user, purpose) is already
// running; otherwise it starts one lasting d.
func (g *OTPAttemptGuard) StartCooldown(ctx context.Context, userID int64, purpose models.OTPPurpose, d time.Duration) (bool, error) {
	key := cooldownKey(userID, purpose)
	if g.redis != nil {
		return g.redis.SetIfAbsent(ctx, key, d)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if until, ok := g.markers[key]; ok && now.Before(until) {
		return false, nil
	}
	g.markers[key] = now.Add(d)

	if len(g.markers) > 100 {
		for k, until := range g.markers {
			if now.After(until) {
				delete(g.markers, k)
			}
		}
	}
	return true, nil
}

// ClearCooldown ends a running cooldown early.
func (g *OTPAttemptGuard) ClearCooldown(ctx context.Context, userID int64, purpose models.OTPPurpose) error {
	key := cooldownKey(userID, purpose)
	if g.redis != nil {
		return g.redis.Delete(ctx, key)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.markers, key)
	return nil
}
