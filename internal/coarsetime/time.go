// Package coarsetime provides a clock updated every 50ms, for timestamps
// taken on every request where time.Now() would show up in profiles.
//
// The ticker goroutine starts on first use.
package coarsetime

import (
	"sync"
	"sync/atomic"
	"time"
)

const tick = 50 * time.Millisecond

var (
	now   atomic.Int64 // unix nanoseconds
	start sync.Once
)

func run() {
	now.Store(time.Now().UnixNano())

	ticker := time.NewTicker(tick)
	go func() {
		for t := range ticker.C {
			now.Store(t.UnixNano())
		}
	}()
}

// Now returns the current time, at most one tick stale.
func Now() time.Time {
	start.Do(run)
	return time.Unix(0, now.Load())
}

// Since is like time.Since with the coarse clock. Never negative.
func Since(t time.Time) time.Duration {
	d := Now().Sub(t)
	if d < 0 {
		return 0
	}
	return d
}
