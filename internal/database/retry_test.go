package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryConnect_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := retryConnect(context.Background(), "test", 3, linearBackoff(time.Millisecond), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryConnect_GivesUp(t *testing.T) {
	down := errors.New("down")
	calls := 0
	err := retryConnect(context.Background(), "test", 2, linearBackoff(time.Millisecond), func(context.Context) error {
		calls++
		return down
	})
	require.ErrorIs(t, err, down)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestRetryConnect_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retryConnect(ctx, "test", 5, exponentialBackoff(time.Hour), func(context.Context) error {
		calls++
		return errors.New("down")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffs(t *testing.T) {
	exp := exponentialBackoff(time.Second)
	assert.Equal(t, time.Second, exp(0))
	assert.Equal(t, 4*time.Second, exp(2))

	lin := linearBackoff(500 * time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, lin(0))
	assert.Equal(t, 1500*time.Millisecond, lin(2))
}
