package syncer

import (
	"fmt"
	"sync"
	"time"
)

// breakerState is the per-key circuit state.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// ErrCircuitOpen is returned when the breaker refuses admission for a key.
type ErrCircuitOpen struct {
	Key        string
	RetryAfter time.Duration
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit open for %s, retry after %s", e.Key, e.RetryAfter)
}

type breakerEntry struct {
	state         breakerState
	failures      int
	openedAt      time.Time
	trialInFlight bool
}

// CircuitBreaker tracks consecutive failures per key and stops calling a
// provider that keeps failing. After the cooldown a single trial call probes
// the provider; its outcome decides between closing and re-opening.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration

	mu      sync.Mutex
	entries map[string]*breakerEntry
	timeNow func() time.Time // injectable for testing
}

// NewCircuitBreaker creates a breaker with the real clock.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return NewCircuitBreakerWithClock(threshold, cooldown, time.Now)
}

// NewCircuitBreakerWithClock creates a breaker with an injectable clock.
func NewCircuitBreakerWithClock(threshold int, cooldown time.Duration, timeNow func() time.Time) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		entries:   make(map[string]*breakerEntry),
		timeNow:   timeNow,
	}
}

// Allow decides whether a call for the key may proceed. In the open state it
// returns ErrCircuitOpen until the cooldown elapses, then admits exactly one
// trial call; further callers keep getting ErrCircuitOpen until the trial
// reports its outcome.
func (b *CircuitBreaker) Allow(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		return nil
	}

	switch entry.state {
	case breakerClosed:
		return nil

	case breakerOpen:
		elapsed := b.timeNow().Sub(entry.openedAt)
		if elapsed < b.cooldown {
			return &ErrCircuitOpen{Key: key, RetryAfter: b.cooldown - elapsed}
		}
		entry.state = breakerHalfOpen
		entry.trialInFlight = true
		return nil

	default: // half-open
		if entry.trialInFlight {
			return &ErrCircuitOpen{Key: key, RetryAfter: b.cooldown}
		}
		entry.trialInFlight = true
		return nil
	}
}

// Success reports a successful call, closing the circuit and clearing the
// failure count.
func (b *CircuitBreaker) Success(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
}

// Failure reports a failed call. The circuit opens when consecutive failures
// reach the threshold, and re-opens immediately when a half-open trial fails.
func (b *CircuitBreaker) Failure(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		entry = &breakerEntry{}
		b.entries[key] = entry
	}

	if entry.state == breakerHalfOpen {
		entry.state = breakerOpen
		entry.openedAt = b.timeNow()
		entry.trialInFlight = false
		return
	}

	entry.failures++
	if entry.failures >= b.threshold {
		entry.state = breakerOpen
		entry.openedAt = b.timeNow()
	}
}
