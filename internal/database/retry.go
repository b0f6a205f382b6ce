package database

import (
	"context"
	"fmt"
	"time"

	zaplogrus "github.com/pixelbuilders001/whydesigns-backend-server/internal/logging/zaplogrus"
)

// backoff returns the wait before attempt n+1.
type backoff func(attempt int) time.Duration

func exponentialBackoff(base time.Duration) backoff {
	return func(attempt int) time.Duration { return base << uint(attempt) }
}

func linearBackoff(step time.Duration) backoff {
	return func(attempt int) time.Duration { return step * time.Duration(attempt+1) }
}

// retryConnect calls connect up to attempts times, waiting wait(n) between
// failures. It gives up early when ctx ends.
func retryConnect(ctx context.Context, target string, attempts int, wait backoff, connect func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = connect(ctx); err == nil {
			zaplogrus.Infof("Connected to %s", target)
			return nil
		}
		zaplogrus.WithError(err).WithField("attempt", attempt+1).Warnf("%s connection attempt failed", target)
		if attempt == attempts-1 {
			break
		}
		select {
		case <-time.After(wait(attempt)):
		case <-ctx.Done():
			return fmt.Errorf("%s connection cancelled: %w", target, ctx.Err())
		}
	}
	return fmt.Errorf("failed to connect to %s after %d attempts: %w", target, attempts, err)
}
