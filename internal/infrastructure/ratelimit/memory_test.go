package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestFixedWindow_AllowsUpToMax(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newFixedWindow(3, time.Minute, clock.Now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _, _ := l.Allow(ctx, "a"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	clock.Advance(20 * time.Second)
	ok, retry, err := l.Allow(ctx, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("4th attempt should be rejected")
	}
	if retry != 40*time.Second {
		t.Fatalf("expected retry-after 40s, got %v", retry)
	}
}

func TestFixedWindow_KeysAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newFixedWindow(1, time.Minute, clock.Now)
	ctx := context.Background()

	if ok, _, _ := l.Allow(ctx, "a"); !ok {
		t.Fatalf("first attempt for a should be allowed")
	}
	if ok, _, _ := l.Allow(ctx, "b"); !ok {
		t.Fatalf("first attempt for b should be allowed")
	}
	if ok, _, _ := l.Allow(ctx, "a"); ok {
		t.Fatalf("second attempt for a should be rejected")
	}
}

func TestFixedWindow_ResetsAfterWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newFixedWindow(1, time.Minute, clock.Now)
	ctx := context.Background()

	l.Allow(ctx, "a")
	if ok, _, _ := l.Allow(ctx, "a"); ok {
		t.Fatalf("expected rejection inside the window")
	}

	clock.Advance(time.Minute)
	if ok, _, _ := l.Allow(ctx, "a"); !ok {
		t.Fatalf("expected a fresh window after expiry")
	}
}

func TestFixedWindow_CleanupDropsExpired(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newFixedWindow(5, time.Minute, clock.Now)
	ctx := context.Background()

	l.Allow(ctx, "old")
	clock.Advance(30 * time.Second)
	l.Allow(ctx, "fresh")
	clock.Advance(40 * time.Second)
	l.cleanup()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.buckets["old"]; ok {
		t.Fatalf("expired bucket should be removed")
	}
	if _, ok := l.buckets["fresh"]; !ok {
		t.Fatalf("live bucket should be kept")
	}
}

func TestFixedWindow_ConcurrentCallers(t *testing.T) {
	l := NewFixedWindow(50, time.Hour)
	defer l.Stop()
	defer l.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _, _ := l.Allow(context.Background(), "k"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 50 {
		t.Fatalf("expected exactly 50 allowed, got %d", allowed)
	}
}
