package node

import (
	"sync/atomic"
	"time"
)

// Clock issues the write timestamps of a node: unix nanoseconds, forced
// strictly monotonic. If the wall clock stands still between two writes (or
// steps backwards), the next timestamp is the previous one plus one, so two
// writes of one node can never tie and a node always orders its own writes
// correctly. Ordering across nodes still relies on roughly synchronized
// wall clocks; the origin id breaks exact ties.
//
// Thread-safety: all methods are safe for concurrent use.
type Clock struct {
	last atomic.Uint64
}

// NewClock creates a clock starting at the current wall time
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next write timestamp
func (c *Clock) Next() uint64 {
	for {
		now := uint64(time.Now().UnixNano())
		last := c.last.Load()
		if now <= last {
			now = last + 1
		}
		if c.last.CompareAndSwap(last, now) {
			return now
		}
	}
}
