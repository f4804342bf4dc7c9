package engine

import "sync/atomic"

// Clock hands out activation sequence numbers. Numbers keep rising across
// attempts on the same engine, so a trace never needs wall time to order
// two activations.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first Next is 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the following sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last number handed out, 0 before the first Next.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
