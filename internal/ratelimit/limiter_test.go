package ratelimit

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/taskstore"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestLimiterGrantsWithinBurstLimit(t *testing.T) {
	ctx := context.Background()
	store := taskstore.NewMemoryStore()
	cfg := shared.RateLimitConfig{
		BurstPerSecond:   3,
		SustainedMax:     90,
		SustainedWindowS: 30,
		RetryAttempts:    3,
		BaseDelaySeconds: 0.01,
	}
	l := New(ctx, store, cfg, testLogger())

	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait() permit %d: %v", i, err)
		}
	}
}

func TestLimiterBlocksOnBurstLimit(t *testing.T) {
	ctx := context.Background()
	store := taskstore.NewMemoryStore()
	cfg := shared.RateLimitConfig{
		BurstPerSecond:   1,
		SustainedMax:     90,
		SustainedWindowS: 30,
		RetryAttempts:    1,
		BaseDelaySeconds: 0.01,
	}
	l := New(ctx, store, cfg, testLogger())

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("first Wait(): %v", err)
	}

	tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := l.Wait(tctx); err == nil {
		t.Fatal("expected second permit within the same second to block past the test timeout")
	}
}

func TestLimiterObserveRateLimitedSetsBarrier(t *testing.T) {
	ctx := context.Background()
	store := taskstore.NewMemoryStore()
	cfg := shared.RateLimitConfig{
		BurstPerSecond:   10,
		SustainedMax:     90,
		SustainedWindowS: 30,
		RetryAttempts:    3,
		BaseDelaySeconds: 0.01,
	}
	l := New(ctx, store, cfg, testLogger())

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("warm-up Wait(): %v", err)
	}

	l.ObserveRateLimited(ctx, 200*time.Millisecond, 0)

	start := time.Now()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait() after Retry-After: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Fatalf("expected Wait() to honor the Retry-After barrier, elapsed only %v", elapsed)
	}
}

func TestLimiterObserveRateLimitedClearsTimestamps(t *testing.T) {
	ctx := context.Background()
	store := taskstore.NewMemoryStore()
	cfg := shared.RateLimitConfig{
		BurstPerSecond:   1,
		SustainedMax:     90,
		SustainedWindowS: 30,
		RetryAttempts:    3,
		BaseDelaySeconds: 0.01,
	}
	l := New(ctx, store, cfg, testLogger())

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait(): %v", err)
	}

	l.ObserveRateLimited(ctx, time.Millisecond, 0)
	time.Sleep(5 * time.Millisecond)

	count, err := store.ZCount(ctx, keyTimestamps, 0, secondsSinceEpoch(time.Now())+1)
	if err != nil {
		t.Fatalf("ZCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected timestamps cleared after a 429, got %d remaining", count)
	}
}
