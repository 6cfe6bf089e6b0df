package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerLinearCooldowns(t *testing.T) {
	t.Parallel()

	s := NewScheduler(3, 60*time.Second)
	st := State{}

	st = s.RecordFailure(st)
	require.True(t, s.ShouldRetry(st))
	require.Equal(t, 60*time.Second, s.NextCooldown(st), "cooldown before attempt 2")

	st = s.RecordFailure(st)
	require.True(t, s.ShouldRetry(st))
	require.Equal(t, 120*time.Second, s.NextCooldown(st), "cooldown before attempt 3")
}

func TestSchedulerExhaustionAfterThreeFailures(t *testing.T) {
	t.Parallel()

	s := NewScheduler(3, time.Second)
	st := State{}
	for i := 0; i < 3; i++ {
		require.False(t, s.Exhausted(st))
		st = s.RecordFailure(st)
	}
	require.True(t, s.Exhausted(st))
	require.False(t, s.ShouldRetry(st), "no further attempts after exhaustion")
}

func TestSchedulerDefaults(t *testing.T) {
	t.Parallel()

	s := NewScheduler(0, 0)
	require.Equal(t, DefaultMaxAttempts, s.MaxAttempts())
	require.Equal(t, DefaultCooldownUnit, s.NextCooldown(State{Attempts: 1}))
}
