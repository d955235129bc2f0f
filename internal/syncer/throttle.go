// internal/syncer/throttle.go
package syncer

import (
	"context"
	"time"
)

// Throttle paces the pass between candidates.
type Throttle interface {
	Wait(ctx context.Context) error
}

type fixedDelay time.Duration

// FixedDelay returns a Throttle that blocks for d on every call, or until ctx is done.
func FixedDelay(d time.Duration) Throttle {
	return fixedDelay(d)
}

func (d fixedDelay) Wait(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(d))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
