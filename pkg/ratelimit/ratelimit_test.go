package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewRejectsInvalidInputs(t *testing.T) {
	if _, err := New(0, 1); err == nil {
		t.Fatal("expected error for zero rate")
	}
	if _, err := New(1, 0); err == nil {
		t.Fatal("expected error for zero burst")
	}
}

func TestAllowConsumesBurst(t *testing.T) {
	limiter, err := New(1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !limiter.Allow("suppliers") {
		t.Fatal("first token should be available")
	}
	if !limiter.Allow("suppliers") {
		t.Fatal("second token should be available")
	}
	if limiter.Allow("suppliers") {
		t.Fatal("burst exhausted, third token should be denied")
	}

	// Separate scopes have independent buckets.
	if !limiter.Allow("forecast") {
		t.Fatal("different scope should have its own bucket")
	}
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	limiter, err := New(0.001, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Drain the only token.
	if !limiter.Allow("suppliers") {
		t.Fatal("expected initial token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "suppliers"); err == nil {
		t.Fatal("expected wait to fail once context expired")
	}
}

func TestWaitRefillsOverTime(t *testing.T) {
	limiter, err := New(50, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !limiter.Allow("suppliers") {
		t.Fatal("expected initial token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := limiter.Wait(ctx, "suppliers"); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("refill took too long: %v", elapsed)
	}
}
