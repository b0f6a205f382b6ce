// Package distributedlock serializes work on a shared resource across
// service instances with Redis SET NX locks.
package distributedlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the key.
var ErrLockHeld = errors.New("lock already held")

// Locker acquires token-guarded locks. A nil *Locker runs every critical
// section unguarded, which is what a single instance without Redis needs.
type Locker struct {
	client *redis.Client
}

// Lock is an acquired lock. Only the token that set it can release it.
type Lock struct {
	key       string
	token     string
	expiresAt time.Time
}

// LockOptions configures lock behavior.
type LockOptions struct {
	// TTL bounds how long a crashed holder can block others.
	TTL time.Duration
	// WaitTimeout is how long Lock retries before giving up. Zero tries once.
	WaitTimeout time.Duration
	// RetryInterval is the delay between attempts.
	RetryInterval time.Duration
}

func DefaultLockOptions() LockOptions {
	return LockOptions{
		TTL:           10 * time.Second,
		WaitTimeout:   2 * time.Second,
		RetryInterval: 50 * time.Millisecond,
	}
}

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client}
}

// BookingSlotKey names the lock guarding one counselor start time.
func BookingSlotKey(counselorID int64, sessionDate time.Time) string {
	return fmt.Sprintf("lock:booking:counselor:%d:%d", counselorID, sessionDate.Unix())
}

// TryLock acquires key once, failing with ErrLockHeld if it is taken.
func (l *Locker) TryLock(ctx context.Context, key string, opts LockOptions) (*Lock, error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, opts.TTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return nil, ErrLockHeld
	}
	return &Lock{key: key, token: token, expiresAt: time.Now().Add(opts.TTL)}, nil
}

// Lock retries TryLock until it succeeds or opts.WaitTimeout passes.
func (l *Locker) Lock(ctx context.Context, key string, opts LockOptions) (*Lock, error) {
	if opts.WaitTimeout <= 0 {
		return l.TryLock(ctx, key, opts)
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 50 * time.Millisecond
	}

	ctx, cancel := context.WithTimeout(ctx, opts.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(opts.RetryInterval)
	defer ticker.Stop()

	for {
		lock, err := l.TryLock(ctx, key, opts)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockHeld) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for lock %s: %w", key, ErrLockHeld)
		case <-ticker.C:
		}
	}
}

// Unlock releases lock if its token still owns the key.
func (l *Locker) Unlock(ctx context.Context, lock *Lock) error {
	if lock == nil {
		return fmt.Errorf("lock is nil")
	}

	released, err := releaseLockScript.Run(ctx, l.client, []string{lock.key}, lock.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if released == 0 {
		return fmt.Errorf("lock %s was not held or token mismatch", lock.key)
	}
	return nil
}

// WithLock runs fn while holding key. The lock is released on a fresh
// context so a cancelled request does not leave it behind until the TTL.
func (l *Locker) WithLock(ctx context.Context, key string, opts LockOptions, fn func() error) error {
	if l == nil {
		return fn()
	}

	lock, err := l.Lock(ctx, key, opts)
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Unlock(releaseCtx, lock)
	}()

	return fn()
}

func (l *Lock) Key() string { return l.key }

func (l *Lock) Token() string { return l.token }

func (l *Lock) ExpiresAt() time.Time { return l.expiresAt }
