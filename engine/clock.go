package engine

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonic logical clock. Expectation ids and transcript events
// are stamped from it so their order never depends on wall-clock time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Timers schedules timeout callbacks. The engine only ever needs one-shot
// timers, so the interface is the subset of time.AfterFunc it uses.
// Tests substitute a manually advanced implementation.
type Timers interface {
	// AfterFunc calls f in its own goroutine after d has elapsed.
	// The returned stop function prevents f from running if it has not
	// started yet and reports whether it did so.
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type systemTimers struct{}

// SystemTimers returns Timers backed by the runtime timer heap.
func SystemTimers() Timers {
	return systemTimers{}
}

func (systemTimers) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
