package handlers

import (
	"testing"
	"time"
)

func TestFixedWindowLimiterBlocksOverLimit(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewFixedWindowLimiter(2, time.Minute, func() time.Time { return now })

	if !limiter.Allow("client") || !limiter.Allow("client") {
		t.Fatal("expected the first two requests to pass")
	}
	if limiter.Allow("client") {
		t.Fatal("expected the third request to be blocked")
	}
	if !limiter.Allow("other") {
		t.Fatal("expected a different key to have its own window")
	}
}

func TestFixedWindowLimiterResetsAfterWindow(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewFixedWindowLimiter(1, time.Minute, func() time.Time { return now })

	if !limiter.Allow("client") {
		t.Fatal("expected the first request to pass")
	}
	if limiter.Allow("client") {
		t.Fatal("expected the second request to be blocked")
	}

	now = now.Add(2 * time.Minute)
	if !limiter.Allow("client") {
		t.Fatal("expected the window to reset")
	}
}

func TestFixedWindowLimiterDisabled(t *testing.T) {
	if limiter := NewFixedWindowLimiter(0, time.Minute, nil); limiter != nil {
		t.Fatal("expected a zero limit to disable the limiter")
	}
}
