package cli

import (
	"fmt"
	"io"

	"github.com/roach88/expecto/engine"
)

// printEvents writes one line per event: seq, kind, then whichever of
// pattern, text and reason are set.
func printEvents(w io.Writer, events []engine.Event) {
	for _, ev := range events {
		fmt.Fprintf(w, "  %4d %-15s", ev.Seq, ev.Kind)
		if ev.Pattern != "" {
			fmt.Fprintf(w, " %s", ev.Pattern)
		}
		if ev.Text != "" {
			fmt.Fprintf(w, " %q", truncate(ev.Text, 60))
		}
		if ev.Reason != "" {
			fmt.Fprintf(w, " (%s)", ev.Reason)
		}
		fmt.Fprintln(w)
	}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
