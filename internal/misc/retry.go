package misc

import (
	"context"
	"time"
)

// DefaultBackoff is used for short-lived setup operations such as schema migration.
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	3 * time.Second,
	5 * time.Second,
}

// DefaultRetryInterval is the fixed pause between reconnect attempts of the long-running loops.
const DefaultRetryInterval = 1 * time.Second

// Retry runs op until it succeeds, returns a non-retryable error or runs out of delays.
func Retry(ctx context.Context, delays []time.Duration, isRetryable func(error) bool, op func() error) error {
	var err error
	for i := 0; ; i++ {
		if err = op(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i >= len(delays) || !isRetryable(err) {
			return err
		}
		if serr := Sleep(ctx, delays[i]); serr != nil {
			return serr
		}
	}
}

// Sleep waits for d or until ctx is done, whichever comes first.
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
