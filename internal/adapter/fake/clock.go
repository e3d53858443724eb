package fake

import (
	"sync"
	"time"

	"aimonitor/internal/clock"
)

var _ clock.Clock = (*Clock)(nil)

// Clock is a settable clock. With a step set, every Now call returns the
// current time and then moves it forward by step, so code that measures
// elapsed time between two reads sees a fixed duration.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Step sets the automatic advance applied after each Now call.
func (c *Clock) Step(d time.Duration) {
	c.mu.Lock()
	c.step = d
	c.mu.Unlock()
}
