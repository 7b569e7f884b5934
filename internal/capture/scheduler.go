package capture

import (
	"context"
	"time"
)

// Scheduler runs periodic background activity for a session.
type Scheduler interface {
	// Every calls fn once per interval until ctx is done.
	Every(ctx context.Context, interval time.Duration, fn func())
}

type tickerScheduler struct{}

func (tickerScheduler) Every(ctx context.Context, interval time.Duration, fn func()) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if ctx.Err() != nil {
					return
				}
				fn()
			}
		}
	}()
}
