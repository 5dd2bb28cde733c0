package platform

import (
	"sync"
	"time"
)

// Clock is the date provider used by the SDK. Tests replace the now function
// to control time.
type Clock struct {
	mu  sync.RWMutex
	now func() time.Time
}

// NewClock creates a clock backed by the system time in UTC.
func NewClock() *Clock {
	return &Clock{now: func() time.Time { return time.Now().UTC() }}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now()
}

// SetNowFunc replaces the time source.
func (c *Clock) SetNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
