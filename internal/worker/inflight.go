package worker

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// inFlightSet tracks routings currently being processed so one dispatch cycle
// overlapping the next cannot hand the same routing to two workers, even when
// two live events carry it. Entries expire after a TTL in case a worker dies
// without releasing, and the set is bounded so a stalled pool cannot grow it
// without limit.
type inFlightSet struct {
	mu      sync.Mutex
	entries map[uuid.UUID]time.Time
	ttl     time.Duration
	maxSize int
	timeNow func() time.Time
}

func newInFlightSet(ttl time.Duration, maxSize int) *inFlightSet {
	return &inFlightSet{
		entries: make(map[uuid.UUID]time.Time),
		ttl:     ttl,
		maxSize: maxSize,
		timeNow: time.Now,
	}
}

// TryAdd marks the routing in flight. Returns false when the routing is
// already tracked and fresh, or the set is full.
func (s *inFlightSet) TryAdd(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timeNow()
	if expiry, ok := s.entries[id]; ok && now.Before(expiry) {
		return false
	}

	if len(s.entries) >= s.maxSize {
		s.evictExpired(now)
		if len(s.entries) >= s.maxSize {
			return false
		}
	}

	s.entries[id] = now.Add(s.ttl)
	return true
}

// Release removes the routing after processing finishes, success or not.
func (s *inFlightSet) Release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Len returns the current tracked count.
func (s *inFlightSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// evictExpired drops stale entries. Must be called with lock held.
func (s *inFlightSet) evictExpired(now time.Time) {
	for id, expiry := range s.entries {
		if !now.Before(expiry) {
			delete(s.entries, id)
		}
	}
}
