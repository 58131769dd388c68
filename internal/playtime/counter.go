// Package playtime accumulates wall-clock time across disjoint active
// intervals (playing, buffering, stalled, DRM loading).
package playtime

import "time"

// Clock returns a monotonic timestamp. Only differences between two
// readings are meaningful.
type Clock func() time.Duration

// SystemClock returns a Clock backed by the runtime monotonic clock.
func SystemClock() Clock {
	origin := time.Now()
	return func() time.Duration {
		return time.Since(origin)
	}
}

// Counter totals elapsed time over repeated Play/Pause cycles.
//
// Not safe for concurrent use.
type Counter struct {
	clock Clock

	total time.Duration

	// Active interval, if any
	active    bool
	startedAt time.Duration
}

// NewCounter creates a counter reading time from clock. A nil clock uses
// SystemClock.
func NewCounter(clock Clock) *Counter {
	if clock == nil {
		clock = SystemClock()
	}
	return &Counter{clock: clock}
}

// Play starts a new active interval. Calling Play while already active
// closes the running interval first, so nothing is counted twice.
func (c *Counter) Play() {
	c.Pause()
	c.active = true
	c.startedAt = c.clock()
}

// Pause closes the running interval. No-op when inactive.
func (c *Counter) Pause() {
	if !c.active {
		return
	}
	c.total += c.elapsed()
	c.active = false
	c.startedAt = 0
}

// TotalPlayTime returns the accumulated time, including the running
// interval when active.
func (c *Counter) TotalPlayTime() time.Duration {
	if !c.active {
		return c.total
	}
	return c.total + c.elapsed()
}

// IsActive reports whether an interval is running.
func (c *Counter) IsActive() bool {
	return c.active
}

// Reset clears the total and stops any running interval.
func (c *Counter) Reset() {
	c.total = 0
	c.active = false
	c.startedAt = 0
}

func (c *Counter) elapsed() time.Duration {
	d := c.clock() - c.startedAt
	if d < 0 {
		// Clock went backwards (e.g. replayed log out of order)
		return 0
	}
	return d
}
