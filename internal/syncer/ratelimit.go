// Package syncer executes the provider sync for one claimed routing: rate
// limiting, circuit breaking, bounded retries and the resulting state
// transitions.
package syncer

import (
	"sync"
	"time"
)

// RateLimiter enforces max calls per sliding window, independently per key.
// Keys are provider-scoped so one busy provider cannot starve another.
type RateLimiter struct {
	maxCalls int
	window   time.Duration

	mu      sync.Mutex
	calls   map[string][]time.Time
	timeNow func() time.Time // injectable for testing
}

// NewRateLimiter creates a limiter with the real clock.
func NewRateLimiter(maxCalls int, window time.Duration) *RateLimiter {
	return NewRateLimiterWithClock(maxCalls, window, time.Now)
}

// NewRateLimiterWithClock creates a limiter with an injectable clock.
func NewRateLimiterWithClock(maxCalls int, window time.Duration, timeNow func() time.Time) *RateLimiter {
	return &RateLimiter{
		maxCalls: maxCalls,
		window:   window,
		calls:    make(map[string][]time.Time),
		timeNow:  timeNow,
	}
}

// Allow reports whether one more call is allowed for the key right now, and
// records it when allowed. A denied call is not recorded.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.timeNow()
	r.expire(key, now)

	if len(r.calls[key]) >= r.maxCalls {
		return false
	}

	r.calls[key] = append(r.calls[key], now)
	return true
}

// Observe pushes external rate-limit feedback into the window: when a
// provider answers 429 the local window fills to capacity so subsequent
// claims back off without burning more provider calls.
func (r *RateLimiter) Observe(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.timeNow()
	r.expire(key, now)

	for len(r.calls[key]) < r.maxCalls {
		r.calls[key] = append(r.calls[key], now)
	}
}

// InWindow returns the recorded call count for the key.
func (r *RateLimiter) InWindow(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.expire(key, r.timeNow())
	return len(r.calls[key])
}

// expire drops timestamps outside the window. Must be called with lock held.
func (r *RateLimiter) expire(key string, now time.Time) {
	cutoff := now.Add(-r.window)
	times := r.calls[key]

	expired := 0
	for _, t := range times {
		if !t.After(cutoff) {
			expired++
		} else {
			break
		}
	}

	if expired == len(times) {
		delete(r.calls, key)
		return
	}
	if expired > 0 {
		r.calls[key] = times[expired:]
	}
}
