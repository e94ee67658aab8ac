package handlers

import (
	"strings"
	"sync"
	"time"
)

// RateLimiter gates requests per client key.
type RateLimiter interface {
	Allow(key string) bool
}

// fixedWindowLimiter tracks how many requests each key has made since its window
// opened. Stale keys are swept at most once per window so the map stays bounded
// by the number of recently active clients.
type fixedWindowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientWindow
	nextSweep time.Time
}

type clientWindow struct {
	opened time.Time
	seen   int
}

// NewFixedWindowLimiter builds a limiter allowing limit requests per window.
// A non-positive limit or window disables limiting and returns nil.
func NewFixedWindowLimiter(limit int, window time.Duration, clock func() time.Time) RateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &fixedWindowLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		clients: make(map[string]*clientWindow),
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

	if now.After(l.nextSweep) {
		for k, w := range l.clients {
			if now.Sub(w.opened) >= l.window {
				delete(l.clients, k)
			}
		}
		l.nextSweep = now.Add(l.window)
	}

	w := l.clients[key]
	if w == nil || now.Sub(w.opened) >= l.window {
		l.clients[key] = &clientWindow{opened: now, seen: 1}
		return true
	}
	if w.seen >= l.limit {
		return false
	}
	w.seen++
	return true
}
