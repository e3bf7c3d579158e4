package core

import "time"

// Clock reports monotonic time since boot.
// All button and scheduler arithmetic uses these offsets rather than wall time.
type Clock interface {
	Now() time.Duration
}

// SystemClock is a Clock backed by the runtime monotonic clock.
type SystemClock struct {
	boot time.Time
}

// NewSystemClock starts a clock at zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{boot: time.Now()}
}

// Now returns the time elapsed since NewSystemClock.
func (c *SystemClock) Now() time.Duration {
	return time.Since(c.boot)
}

// ManualClock only moves when told to (tests and replayed input).
type ManualClock struct {
	now time.Duration
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Duration {
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.now += d
}

// Set jumps the clock to t.
func (c *ManualClock) Set(t time.Duration) {
	c.now = t
}
