package handlers

import (
	"testing"
	"time"
)

func TestFixedWindowLimiterEnforcesLimit(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	limiter := newFixedWindowLimiter(2, time.Minute, func() time.Time { return now })

	if !limiter.Allow("uid-1") || !limiter.Allow("uid-1") {
		t.Fatal("expected first two calls to pass")
	}
	if limiter.Allow("uid-1") {
		t.Fatal("expected third call to be rejected")
	}
	if !limiter.Allow("uid-2") {
		t.Fatal("expected independent key to pass")
	}
}

func TestFixedWindowLimiterResetsAfterWindow(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	limiter := newFixedWindowLimiter(1, time.Minute, func() time.Time { return now })

	if !limiter.Allow("uid-1") {
		t.Fatal("expected first call to pass")
	}
	if limiter.Allow("uid-1") {
		t.Fatal("expected second call to be rejected")
	}

	now = now.Add(2 * time.Minute)
	if !limiter.Allow("uid-1") {
		t.Fatal("expected call after window to pass")
	}
}

func TestFixedWindowLimiterNilForInvalidInputs(t *testing.T) {
	if limiter := newFixedWindowLimiter(0, time.Minute, nil); limiter != nil {
		t.Fatal("expected nil limiter for zero limit")
	}
	if limiter := newFixedWindowLimiter(3, 0, nil); limiter != nil {
		t.Fatal("expected nil limiter for zero window")
	}
}
