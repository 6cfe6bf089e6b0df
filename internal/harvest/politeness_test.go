package harvest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDelayPolicyNextStaysInBounds(t *testing.T) {
	t.Parallel()

	policy := DelayPolicy{Min: 3 * time.Second, Max: 8 * time.Second}
	for i := 0; i < 200; i++ {
		d := policy.Next()
		require.GreaterOrEqual(t, d, policy.Min)
		require.LessOrEqual(t, d, policy.Max)
	}
}

func TestDelayPolicyDegenerateWindow(t *testing.T) {
	t.Parallel()

	policy := DelayPolicy{Min: 5 * time.Second, Max: 5 * time.Second}
	require.Equal(t, 5*time.Second, policy.Next())

	require.Zero(t, DelayPolicy{}.Next())
}

func TestTimerPauserHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	NewTimerPauser().Pause(ctx, time.Minute)
	require.Less(t, time.Since(start), time.Second, "a canceled context unblocks the pause")
}

func TestTimerPauserSkipsNonPositiveDelays(t *testing.T) {
	t.Parallel()

	start := time.Now()
	NewTimerPauser().Pause(context.Background(), 0)
	NewTimerPauser().Pause(context.Background(), -time.Second)
	require.Less(t, time.Since(start), time.Second)
}
