package a

import (
	"context"
	"time"
	clock "time"
)

func poll() {
	time.Sleep(time.Second) // want "time.Sleep ignores cancellation"
}

func renamed() {
	clock.Sleep(clock.Millisecond) // want "time.Sleep ignores cancellation"
}

func deferred() {
	defer time.Sleep(0) // want "time.Sleep ignores cancellation"
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
