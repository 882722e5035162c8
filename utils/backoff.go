package utils

import (
	"context"
	"time"
)

// Backoff computes capped exponential delays.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	// Factor multiplies the delay after each attempt, 2 when zero.
	Factor float64
}

// Delay returns the wait before retry number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	factor := b.Factor
	if factor <= 0 {
		factor = 2
	}
	d := float64(b.Initial)
	for i := 0; i < attempt; i++ {
		d *= factor
		if b.Max > 0 && d >= float64(b.Max) {
			return b.Max
		}
	}
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in that case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
