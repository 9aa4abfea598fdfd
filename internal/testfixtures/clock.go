package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manually driven time source shared by a component under test and
// its assertions.
type Clock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewClock returns a clock reading start. The zero value selects ReferenceTime.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

// Now returns the current reading.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// NowFunc exposes Now for injection into services and engines.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set moves the clock to t, forwards or backwards.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new reading.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Until returns the duration between the current reading and t.
func (c *Clock) Until(t time.Time) time.Duration {
	return t.Sub(c.Now())
}
