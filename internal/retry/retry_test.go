package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) *Config {
	return &Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context, attempt int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoRecoversAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context, attempt int) error {
		calls++
		if calls < 3 {
			return errors.New("503")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("connection refused")
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context, attempt int) error {
		calls++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 3, calls)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, fastConfig(5), func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestCalculateDelayCapsAtMax(t *testing.T) {
	cfg := &Config{
		InitialDelay: time.Second,
		MaxDelay:     3 * time.Second,
		Multiplier:   2,
	}
	require.Equal(t, time.Second, calculateDelay(cfg, 1))
	require.Equal(t, 2*time.Second, calculateDelay(cfg, 2))
	require.Equal(t, 3*time.Second, calculateDelay(cfg, 3))
	require.Equal(t, 3*time.Second, calculateDelay(cfg, 10))
}
