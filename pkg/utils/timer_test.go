package utils

import (
	"testing"
	"time"
)

func TestResetTimerDrainsStaleFire(t *testing.T) {
	timer := time.NewTimer(time.Millisecond)
	defer timer.Stop()

	// Let the timer fire so a stale value sits in the channel.
	time.Sleep(10 * time.Millisecond)

	ResetTimer(timer, 100*time.Millisecond)

	select {
	case <-timer.C:
		t.Fatal("rearmed timer fired immediately from a stale value")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestResetTimerRearmsActiveTimer(t *testing.T) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	ResetTimer(timer, 5*time.Millisecond)

	select {
	case <-timer.C:
	case <-time.After(2 * time.Second):
		t.Fatal("rearmed timer never fired")
	}
}
