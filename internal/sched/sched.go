// Package sched is the periodic trigger that stands in for an external
// cron: it invokes a callback on a fixed interval until the context ends.
// The waitlist core itself never owns a timer; main wires this to Sweep.
package sched

import (
	"context"
	"time"
)

// Every runs fn once per interval on a background goroutine. The first run
// happens after one full interval. Returns immediately.
func Every(ctx context.Context, interval time.Duration, fn func()) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fn()
			}
		}
	}()
}
