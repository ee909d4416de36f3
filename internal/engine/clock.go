package engine

import (
	"math"
	"sync/atomic"
)

// Clock holds the logical sequence used to order trace records and the
// current scene time.
//
// The sequence is strictly increasing and never derived from wall-clock
// time, so a replayed stimulus sequence stamps identical seq values.
// Thread-safety: Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
	now atomic.Uint64 // math.Float64bits of the scene time
}

// NewClock creates a clock at sequence 0 and time 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming at a sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Now returns the scene time of the latest stimulus.
func (c *Clock) Now() float64 {
	return math.Float64frombits(c.now.Load())
}

// Advance sets the scene time to ts if ts is later than Now.
func (c *Clock) Advance(ts float64) {
	for {
		old := c.now.Load()
		if ts <= math.Float64frombits(old) {
			return
		}
		if c.now.CompareAndSwap(old, math.Float64bits(ts)) {
			return
		}
	}
}
