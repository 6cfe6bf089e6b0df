// Package retry implements the per-item bounded-retry policy used when a
// detail page yields no content, the usual symptom of a soft block. The
// scheduler is pure logic: it never sleeps or performs I/O, so policy can be
// tested without timing side effects.
package retry

import "time"

// DefaultMaxAttempts bounds how often one item's enrichment is attempted.
const DefaultMaxAttempts = 3

// DefaultCooldownUnit is the per-attempt cooldown multiplier. The backoff is
// linear in the attempt count, giving the server increasing relief without an
// unbounded wait.
const DefaultCooldownUnit = 60 * time.Second

// State tracks the failed attempts for a single item. It is created when an
// item's enrichment begins and discarded once the item succeeds or is given
// up on; nothing about it is persisted.
type State struct {
	Attempts int
}

// Scheduler decides whether and when a failed enrichment is retried.
type Scheduler struct {
	maxAttempts  int
	cooldownUnit time.Duration
}

// NewScheduler builds a scheduler. Non-positive arguments fall back to the
// defaults.
func NewScheduler(maxAttempts int, cooldownUnit time.Duration) Scheduler {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if cooldownUnit <= 0 {
		cooldownUnit = DefaultCooldownUnit
	}
	return Scheduler{maxAttempts: maxAttempts, cooldownUnit: cooldownUnit}
}

// ShouldRetry reports whether another attempt is permitted.
func (s Scheduler) ShouldRetry(st State) bool {
	return st.Attempts < s.maxAttempts
}

// RecordFailure returns the state advanced by one failed attempt.
func (s Scheduler) RecordFailure(st State) State {
	st.Attempts++
	return st
}

// NextCooldown returns how long to wait before the next attempt: the
// cooldown unit scaled by the number of failures so far.
func (s Scheduler) NextCooldown(st State) time.Duration {
	return time.Duration(st.Attempts) * s.cooldownUnit
}

// Exhausted reports whether the item must be given up on. No cooldown is
// owed once the state is exhausted.
func (s Scheduler) Exhausted(st State) bool {
	return st.Attempts >= s.maxAttempts
}

// MaxAttempts exposes the configured bound.
func (s Scheduler) MaxAttempts() int {
	return s.maxAttempts
}
