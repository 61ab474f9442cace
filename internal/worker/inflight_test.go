package worker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestInFlightSetDeduplicates(t *testing.T) {
	set := newInFlightSet(5*time.Minute, 100)
	id := uuid.New()

	assert.True(t, set.TryAdd(id))
	assert.False(t, set.TryAdd(id), "same event must not be added twice")

	set.Release(id)
	assert.True(t, set.TryAdd(id), "released events can be re-added")
}

func TestInFlightSetEntriesExpire(t *testing.T) {
	now := time.Now()
	set := newInFlightSet(5*time.Minute, 100)
	set.timeNow = func() time.Time { return now }

	id := uuid.New()
	assert.True(t, set.TryAdd(id))

	now = now.Add(4 * time.Minute)
	assert.False(t, set.TryAdd(id), "fresh entry still blocks")

	// A worker that died without releasing stops blocking after the TTL.
	now = now.Add(2 * time.Minute)
	assert.True(t, set.TryAdd(id))
}

func TestInFlightSetBounded(t *testing.T) {
	now := time.Now()
	set := newInFlightSet(5*time.Minute, 3)
	set.timeNow = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, set.TryAdd(uuid.New()))
	}
	assert.False(t, set.TryAdd(uuid.New()), "full set rejects new entries")
	assert.Equal(t, 3, set.Len())

	// Expired entries are evicted to make room.
	now = now.Add(6 * time.Minute)
	assert.True(t, set.TryAdd(uuid.New()))
}
