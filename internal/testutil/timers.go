package testutil

import (
	"sort"
	"sync"
	"time"
)

// FakeTimers is a manually advanced timer source for tests.
//
// It satisfies engine.Timers. Nothing fires until Advance moves the fake
// time past a timer's deadline, so timeout races are deterministic.
//
// Thread-safety: all methods are safe for concurrent use. Callbacks run
// synchronously inside Advance, outside the internal lock.
type FakeTimers struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

// NewFakeTimers creates a timer source at fake time 0.
func NewFakeTimers() *FakeTimers {
	return &FakeTimers{}
}

// AfterFunc schedules f to run once fake time reaches now+d.
func (c *FakeTimers) AfterFunc(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)

	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if t.stopped || t.fired {
			return false
		}
		t.stopped = true
		return true
	}
}

// Advance moves fake time forward by d and runs every timer that became
// due, earliest deadline first.
func (c *FakeTimers) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	var keep []*fakeTimer
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case t.at <= c.now:
			t.fired = true
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}
	c.timers = keep
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

// Now returns the elapsed fake time.
func (c *FakeTimers) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Armed returns the number of timers that are neither stopped nor fired.
func (c *FakeTimers) Armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}
