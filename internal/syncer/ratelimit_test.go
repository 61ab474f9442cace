package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterWindowBoundary(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewRateLimiterWithClock(50, time.Minute, func() time.Time { return now })

	for i := 0; i < 50; i++ {
		assert.True(t, limiter.Allow("servicetitan"), "call %d should be allowed", i+1)
	}
	assert.False(t, limiter.Allow("servicetitan"), "call 51 must be denied")
	assert.Equal(t, 50, limiter.InWindow("servicetitan"))

	// Just before the window slides nothing frees up.
	now = now.Add(59 * time.Second)
	assert.False(t, limiter.Allow("servicetitan"))

	// Once the first calls age out capacity returns.
	now = now.Add(2 * time.Second)
	assert.True(t, limiter.Allow("servicetitan"))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiterWithClock(1, time.Minute, func() time.Time { return now })

	assert.True(t, limiter.Allow("servicetitan"))
	assert.False(t, limiter.Allow("servicetitan"))
	assert.True(t, limiter.Allow("housecallpro"))
}

func TestRateLimiterDeniedCallNotRecorded(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiterWithClock(2, time.Minute, func() time.Time { return now })

	limiter.Allow("mock")
	limiter.Allow("mock")
	limiter.Allow("mock")
	limiter.Allow("mock")
	assert.Equal(t, 2, limiter.InWindow("mock"))
}

func TestRateLimiterObserveFillsWindow(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiterWithClock(50, time.Minute, func() time.Time { return now })

	limiter.Allow("servicetitan")
	limiter.Observe("servicetitan")

	assert.Equal(t, 50, limiter.InWindow("servicetitan"))
	assert.False(t, limiter.Allow("servicetitan"))

	// The synthetic calls expire with the window like real ones.
	now = now.Add(61 * time.Second)
	assert.True(t, limiter.Allow("servicetitan"))
}
