// Package clock provides the sleep primitive shared by the show loop and
// the pin bank, so tests can run both on virtual time.
package clock

import (
	"context"
	"time"
)

// Clock sleeps between ticks, sweep holds and passes.
type Clock interface {
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// Wall sleeps on real time.
type Wall struct{}

// Sleep returns ctx.Err() if ctx ends first. A non-positive d only checks ctx.
func (Wall) Sleep(ctx context.Context, d time.Duration) error {
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
