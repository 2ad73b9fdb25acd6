package handlers

import (
	"strings"
	"sync"
	"time"
)

// RateLimiter throttles repeated actions per caller key. The proof upload
// endpoints use it keyed by reseller UID.
type RateLimiter interface {
	Allow(key string) bool
}

// NewFixedWindowLimiter allows up to limit calls per key within each window.
func NewFixedWindowLimiter(limit int, window time.Duration) RateLimiter {
	return newFixedWindowLimiter(limit, window, time.Now)
}

type fixedWindowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time
	mu     sync.Mutex
	store  map[string]windowEntry
}

type windowEntry struct {
	count int
	reset time.Time
}

// newFixedWindowLimiter allows up to limit calls per key within each window.
// A nil limiter is returned (and treated as "always allow") for non-positive inputs.
func newFixedWindowLimiter(limit int, window time.Duration, clock func() time.Time) RateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &fixedWindowLimiter{
		limit:  limit,
		window: window,
		clock:  clock,
		store:  make(map[string]windowEntry),
	}
}

func (l *fixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}

	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.store[key]
	if !ok || now.After(entry.reset) {
		l.pruneLocked(now)
		l.store[key] = windowEntry{count: 1, reset: now.Add(l.window)}
		return true
	}

	if entry.count >= l.limit {
		return false
	}
	entry.count++
	l.store[key] = entry
	return true
}

func (l *fixedWindowLimiter) pruneLocked(now time.Time) {
	for key, entry := range l.store {
		if now.After(entry.reset) {
			delete(l.store, key)
		}
	}
}
