package utils

import "time"

// ResetTimer rearms a timer for the next tick. If the timer fired while the
// caller was busy, the stale value is drained first so the rearmed timer
// waits the full duration instead of firing immediately.
func ResetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}
