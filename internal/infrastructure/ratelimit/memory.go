// Package ratelimit provides an in-process fixed window limiter for single
// instance deployments that run without Redis.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

type bucket struct {
	count   int
	resetAt time.Time
}

// FixedWindow allows max attempts per key in each window. Expired buckets
// are swept periodically until Stop is called.
type FixedWindow struct {
	mu      sync.Mutex
	win     time.Duration
	max     int
	buckets map[string]*bucket
	now     func() time.Time
	stopCh  chan struct{}
	stop    sync.Once
}

func NewFixedWindow(max int, window time.Duration) *FixedWindow {
	l := newFixedWindow(max, window, time.Now)
	go l.cleanupLoop()
	return l
}

func newFixedWindow(max int, window time.Duration, now func() time.Time) *FixedWindow {
	return &FixedWindow{
		win:     window,
		max:     max,
		buckets: make(map[string]*bucket),
		now:     now,
		stopCh:  make(chan struct{}),
	}
}

// Allow never returns an error; the signature matches the shared limiter port.
func (l *FixedWindow) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b == nil || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(l.win)}
		l.buckets[key] = b
	}
	b.count++
	if b.count <= l.max {
		return true, 0, nil
	}
	return false, b.resetAt.Sub(now), nil
}

func (l *FixedWindow) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

func (l *FixedWindow) cleanup() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, key)
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *FixedWindow) Stop() {
	l.stop.Do(func() { close(l.stopCh) })
}
