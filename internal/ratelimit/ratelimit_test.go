package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitSpacesCalls(t *testing.T) {
	limiter := New(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	// First call is free; the two follow-ups each wait one interval.
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Fatalf("three calls completed in %v, want at least ~100ms", elapsed)
	}
}

func TestZeroIntervalNeverBlocks(t *testing.T) {
	limiter := New(0)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("unlimited limiter blocked for %v", elapsed)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	limiter := New(time.Hour)
	ctx := context.Background()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(cancelled); err == nil {
		t.Fatal("expected context error on second Wait")
	}
}

func TestNilLimiterIsNoop(t *testing.T) {
	var limiter *Limiter
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter Wait: %v", err)
	}
	if !limiter.Allow() {
		t.Fatal("nil limiter should always allow")
	}
}
