package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant a DeterministicClock starts from. The first reading
// is Epoch plus one tick.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a stand-in for time.Now that advances by a fixed tick
// on every reading, so recorded timestamps and step durations repeat exactly
// between test runs. It is safe for concurrent use.
type DeterministicClock struct {
	mu       sync.Mutex
	readings int64
	tick     time.Duration
}

// NewDeterministicClock returns a clock advancing by tick per reading.
// A non-positive tick means one millisecond.
func NewDeterministicClock(tick time.Duration) *DeterministicClock {
	if tick <= 0 {
		tick = time.Millisecond
	}
	return &DeterministicClock{tick: tick}
}

// Now advances the clock by one tick and returns the new instant.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readings++
	return Epoch.Add(time.Duration(c.readings) * c.tick)
}

// Readings reports how many times Now has been called.
func (c *DeterministicClock) Readings() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readings
}
