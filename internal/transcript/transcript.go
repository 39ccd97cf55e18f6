// Package transcript collects the events of an expecto session and renders
// them in a stable form for golden-file comparison.
package transcript

import (
	"slices"
	"sync"

	"github.com/roach88/expecto/engine"
)

// Transcript is the recorded history of one session.
type Transcript struct {
	SessionID string
	Name      string
	Command   string
	Args      []string
	Events    []engine.Event
}

// Collector is an in-memory engine.Recorder.
//
// Thread-safety: safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	events []engine.Event
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record appends ev. Implements engine.Recorder.
func (c *Collector) Record(ev engine.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

// Events returns a copy of the recorded events in seq order.
func (c *Collector) Events() []engine.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.events)
}

// Len returns the number of recorded events.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
