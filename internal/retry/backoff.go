package retry

import (
	"context"
	"time"
)

// Backoff returns the wait before the retry that follows attempt (1-based):
// base doubled per attempt, capped, then jittered into [d/2, d].
// A zero cap means uncapped.
func Backoff(attempt int, base, maxDelay time.Duration, rnd func() float64) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt; i++ {
		if maxDelay > 0 && d >= maxDelay {
			break
		}
		d *= 2
	}
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	if rnd == nil {
		return d
	}
	half := d / 2
	return half + time.Duration(rnd()*float64(d-half))
}

func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
