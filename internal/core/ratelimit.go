package core

import (
	"sync"
	"time"
)

// RateLimitResult describes the outcome of a rate-limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter is an injected capability so multi-instance deployments can
// back it with a shared counter store. The in-memory implementation below is
// the single-instance default and is best-effort only.
type RateLimiter interface {
	Check(key string, limit int, window time.Duration) RateLimitResult
}

// memoryRateLimiter is a fixed-window in-memory limiter.
type memoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// NewMemoryRateLimiter creates the default in-memory rate limiter.
func NewMemoryRateLimiter() RateLimiter {
	return &memoryRateLimiter{windows: make(map[string]*rateWindow)}
}

// Check counts a hit against the key's current window and reports whether it
// is allowed. Expired windows are swept opportunistically.
func (l *memoryRateLimiter) Check(key string, limit int, window time.Duration) RateLimitResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(window)}
		l.windows[key] = w
	}

	// Sweep a few expired entries so the map does not grow unbounded.
	if len(l.windows) > 1024 {
		swept := 0
		for k, v := range l.windows {
			if now.After(v.resetAt) {
				delete(l.windows, k)
			}
			if swept++; swept >= 64 {
				break
			}
		}
	}

	if w.count >= limit {
		return RateLimitResult{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}
	w.count++
	return RateLimitResult{Allowed: true, Remaining: limit - w.count, ResetAt: w.resetAt}
}
