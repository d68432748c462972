package oi

import (
	"context"
	"testing"
	"time"
)

func TestLimiterSpacing(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	const rps = 50.0
	minGap := time.Duration(float64(time.Second) / rps)
	limiter := NewLimiter(rps)
	ctx := context.Background()

	// First token is free; subsequent dispatches observe the spacing.
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("Wait error: %v", err)
	}

	prev := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait error: %v", err)
		}
		now := time.Now()
		// Allow a millisecond of scheduler slop
		if gap := now.Sub(prev); gap < minGap-time.Millisecond {
			t.Errorf("dispatch %d after %v, want >= %v", i, gap, minGap)
		}
		prev = now
	}
}

func TestLimiterCancellation(t *testing.T) {
	limiter := NewLimiter(0.001) // ~17 minutes between tokens

	ctx, cancel := context.WithCancel(context.Background())
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first Wait error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- limiter.Wait(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not honor cancellation")
	}
}

func TestLimiterDefaultsOnBadRate(t *testing.T) {
	limiter := NewLimiter(-1)
	if limiter == nil || limiter.limiter == nil {
		t.Fatal("limiter not constructed")
	}
	if got := float64(limiter.limiter.Limit()); got != DefaultRequestsPerSecond {
		t.Errorf("default rate = %v, want %v", got, DefaultRequestsPerSecond)
	}
}
