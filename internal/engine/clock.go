package engine

import "sync/atomic"

// Clock is the monotonic logical clock that stamps loop tasks, reducer
// applications and trace records.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// Post stamps tasks from arbitrary goroutines.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used to continue a trace recorded by an earlier session.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
