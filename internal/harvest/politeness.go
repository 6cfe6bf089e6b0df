package harvest

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// timerPauser suspends on a timer while honoring context cancellation.
type timerPauser struct{}

// NewTimerPauser returns the wall-clock Pauser used outside tests.
func NewTimerPauser() Pauser {
	return &timerPauser{}
}

func (p *timerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// DelayPolicy produces the randomized politeness delay imposed between
// requests.
type DelayPolicy struct {
	Min time.Duration
	Max time.Duration
}

// Next returns a uniformly random delay within [Min, Max].
func (p DelayPolicy) Next() time.Duration {
	if p.Max <= p.Min {
		return p.Min
	}
	span := big.NewInt(int64(p.Max - p.Min + 1))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return p.Min + (p.Max-p.Min)/2
	}
	return p.Min + time.Duration(n.Int64())
}
