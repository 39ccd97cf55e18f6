package engine

import "errors"

// EventKind names an entry in a session transcript.
type EventKind string

const (
	EventChunk          EventKind = "chunk"
	EventExpect         EventKind = "expect"
	EventMatch          EventKind = "match"
	EventCancel         EventKind = "cancel"
	EventTimeoutArmed   EventKind = "timeout_armed"
	EventTimeoutFired   EventKind = "timeout_fired"
	EventTimeoutCleared EventKind = "timeout_cleared"
	EventSend           EventKind = "send"
	EventEOF            EventKind = "eof"
	EventReset          EventKind = "reset"
	EventTrim           EventKind = "trim"
)

// Event is one observable step of a session, stamped with a logical seq.
type Event struct {
	Seq     int64     `json:"seq"`
	Kind    EventKind `json:"kind"`
	Pattern string    `json:"pattern,omitempty"`
	Text    string    `json:"text,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

// Recorder receives session events in seq order.
//
// Record is called from the engine loop and from Send callers, never
// concurrently. A Record error is logged and otherwise ignored; recording
// never changes matching behavior.
type Recorder interface {
	Record(Event) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(Event) error

// Record calls f(ev).
func (f RecorderFunc) Record(ev Event) error {
	return f(ev)
}

type multiRecorder []Recorder

// Recorders fans every event out to each non-nil recorder.
func Recorders(rs ...Recorder) Recorder {
	var out multiRecorder
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multiRecorder) Record(ev Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
