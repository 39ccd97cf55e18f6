package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/expecto/engine"
)

// Assertion checks the recorded transcript after the steps have run.
type Assertion struct {
	// Type is one of transcript_contains, transcript_count,
	// transcript_order.
	Type string `yaml:"type" json:"type"`

	// Kind, Pattern and Text select events (transcript_contains,
	// transcript_count). Pattern must equal the event's pattern; Text must
	// be a substring of the event's text. Empty selectors match anything.
	Kind    string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Text    string `yaml:"text,omitempty" json:"text,omitempty"`

	// Count is the exact number of selected events (transcript_count).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Kinds must appear in this order, not necessarily adjacent
	// (transcript_order).
	Kinds []string `yaml:"kinds,omitempty" json:"kinds,omitempty"`
}

// Assertion type constants.
const (
	AssertTranscriptContains = "transcript_contains"
	AssertTranscriptCount    = "transcript_count"
	AssertTranscriptOrder    = "transcript_order"
)

// AssertionError is returned when an assertion fails. It carries the
// transcript so the failure can be read without re-running the script.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Events   []engine.Event
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\ntranscript:\n")
	for _, ev := range e.Events {
		if ev.Kind == engine.EventChunk {
			continue
		}
		fmt.Fprintf(&buf, "  [%d] %s", ev.Seq, ev.Kind)
		if ev.Pattern != "" {
			fmt.Fprintf(&buf, " %s", ev.Pattern)
		}
		if ev.Text != "" {
			fmt.Fprintf(&buf, " %q", ev.Text)
		}
		if ev.Reason != "" {
			fmt.Fprintf(&buf, " (%s)", ev.Reason)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTranscriptContains:
		if a.Kind == "" && a.Pattern == "" && a.Text == "" {
			return errors.New("transcript_contains needs kind, pattern or text")
		}
	case AssertTranscriptCount:
		if a.Count < 0 {
			return fmt.Errorf("count must not be negative, got %d", a.Count)
		}
	case AssertTranscriptOrder:
		if len(a.Kinds) == 0 {
			return errors.New("transcript_order needs kinds")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func (a Assertion) selects(ev engine.Event) bool {
	if a.Kind != "" && string(ev.Kind) != a.Kind {
		return false
	}
	if a.Pattern != "" && ev.Pattern != a.Pattern {
		return false
	}
	return a.Text == "" || strings.Contains(ev.Text, a.Text)
}

func (a Assertion) selector() string {
	var parts []string
	if a.Kind != "" {
		parts = append(parts, "kind="+a.Kind)
	}
	if a.Pattern != "" {
		parts = append(parts, "pattern="+a.Pattern)
	}
	if a.Text != "" {
		parts = append(parts, fmt.Sprintf("text~%q", a.Text))
	}
	if len(parts) == 0 {
		return "any event"
	}
	return strings.Join(parts, " ")
}

func assertContains(events []engine.Event, a Assertion) error {
	for _, ev := range events {
		if a.selects(ev) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTranscriptContains,
		Expected: a.selector(),
		Actual:   "not found in transcript",
		Events:   events,
	}
}

func assertCount(events []engine.Event, a Assertion) error {
	n := 0
	for _, ev := range events {
		if a.selects(ev) {
			n++
		}
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertTranscriptCount,
			Expected: fmt.Sprintf("%d events with %s", a.Count, a.selector()),
			Actual:   fmt.Sprintf("%d events", n),
			Events:   events,
		}
	}
	return nil
}

// assertOrder checks that Kinds is a subsequence of the event kinds.
func assertOrder(events []engine.Event, a Assertion) error {
	next := 0
	for _, ev := range events {
		if next < len(a.Kinds) && string(ev.Kind) == a.Kinds[next] {
			next++
		}
	}
	if next < len(a.Kinds) {
		return &AssertionError{
			Type:     AssertTranscriptOrder,
			Expected: fmt.Sprintf("kinds in order: %v", a.Kinds),
			Actual:   fmt.Sprintf("no %s after %v", a.Kinds[next], a.Kinds[:next]),
			Events:   events,
		}
	}
	return nil
}

// EvaluateAssertions checks every assertion and returns the failure
// messages. An empty slice means all passed.
func EvaluateAssertions(events []engine.Event, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTranscriptContains:
			err = assertContains(events, a)
		case AssertTranscriptCount:
			err = assertCount(events, a)
		case AssertTranscriptOrder:
			err = assertOrder(events, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}
