package transcript

import (
	"bytes"
	"fmt"

	"github.com/roach88/expecto/engine"
)

// volatile events depend on how the OS split the child's output into reads
// or on buffer sizing, not on the script, so snapshots leave them out.
var volatile = map[engine.EventKind]bool{
	engine.EventChunk: true,
	engine.EventTrim:  true,
	engine.EventEOF:   true,
}

// Snapshot renders t as canonical JSON lines: a header line with the
// session name and command, then one line per stable event. Events carry
// their ordinal position instead of seq, and the session id is omitted,
// so two runs of the same script produce identical bytes.
func Snapshot(t Transcript) ([]byte, error) {
	var buf bytes.Buffer

	header := map[string]any{"name": t.Name}
	if t.Command != "" {
		header["command"] = t.Command
	}
	if len(t.Args) > 0 {
		header["args"] = t.Args
	}
	line, err := MarshalCanonical(header)
	if err != nil {
		return nil, fmt.Errorf("snapshot header: %w", err)
	}
	buf.Write(line)
	buf.WriteByte('\n')

	n := 0
	for _, ev := range t.Events {
		if volatile[ev.Kind] {
			continue
		}
		n++
		line, err := MarshalCanonical(eventMap(n, ev))
		if err != nil {
			return nil, fmt.Errorf("snapshot event %d: %w", ev.Seq, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func eventMap(pos int, ev engine.Event) map[string]any {
	m := map[string]any{
		"n":    pos,
		"kind": string(ev.Kind),
	}
	if ev.Pattern != "" {
		m["pattern"] = ev.Pattern
	}
	if ev.Text != "" {
		m["text"] = ev.Text
	}
	if ev.Reason != "" {
		m["reason"] = ev.Reason
	}
	return m
}
