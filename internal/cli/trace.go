package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/expecto/engine"
	"github.com/roach88/expecto/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Kind     string // optional - filter to one event kind
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Command   string    `json:"command"`
	Args      []string  `json:"args"`
	StartedAt time.Time `json:"started_at"`
	Finished  bool      `json:"finished"`
	ExitCode  int       `json:"exit_code"`
	Pass      bool      `json:"pass"`
}

// TraceResult holds one session and its events.
type TraceResult struct {
	Session SessionSummary `json:"session"`
	Events  []engine.Event `json:"events"`
	Stats   TraceStats     `json:"stats"`
}

// TraceStats counts the settled expectations of a session.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	Expects     int `json:"expects"`
	Matches     int `json:"matches"`
	Cancels     int `json:"cancels"`
	Timeouts    int `json:"timeouts"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [session-id]",
		Short: "Show recorded sessions and their events",
		Long: `Show sessions recorded with expecto run --db.

Without a session id, lists every session in the database, oldest
first. With one, prints that session's events in order.

Examples:
  expecto trace --db ./expecto.db
  expecto trace --db ./expecto.db 01928c6e-...
  expecto trace --db ./expecto.db 01928c6e-... --kind match
  expecto trace --db ./expecto.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to config db)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "show only events of this kind")

	return cmd
}

func runTrace(opts *TraceOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	db := opts.Database
	if db == "" {
		db = opts.Config.DB
	}
	if db == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}
	// Open would create an empty database; a missing file is a usage error.
	if _, err := os.Stat(db); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", db), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(db)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, "failed to open database", err.Error())
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if len(args) == 0 {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		summaries := make([]SessionSummary, 0, len(sessions))
		for _, sess := range sessions {
			summaries = append(summaries, summarize(sess))
		}
		if formatter.Format == "json" {
			return formatter.Success(summaries)
		}
		outputSessionList(formatter.Writer, summaries)
		return nil
	}

	id := args[0]
	sess, err := st.ReadSession(ctx, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("session not found: %s", id), nil)
		return WrapExitError(ExitCommandError, "session not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	events, err := st.ReadEvents(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := TraceResult{
		Session: summarize(sess),
		Events:  filterEvents(events, engine.EventKind(opts.Kind)),
		Stats:   traceStats(events),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	outputTraceText(formatter.Writer, result)
	return nil
}

func summarize(sess store.Session) SessionSummary {
	args := sess.Args
	if args == nil {
		args = []string{}
	}
	return SessionSummary{
		ID:        sess.ID,
		Name:      sess.Name,
		Command:   sess.Command,
		Args:      args,
		StartedAt: sess.StartedAt,
		Finished:  sess.Finished,
		ExitCode:  sess.ExitCode,
		Pass:      sess.Pass,
	}
}

// filterEvents keeps events of one kind. An empty kind keeps everything.
func filterEvents(events []engine.Event, kind engine.EventKind) []engine.Event {
	if kind == "" {
		return events
	}
	out := []engine.Event{}
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func traceStats(events []engine.Event) TraceStats {
	stats := TraceStats{TotalEvents: len(events)}
	for _, ev := range events {
		switch ev.Kind {
		case engine.EventExpect:
			stats.Expects++
		case engine.EventMatch:
			stats.Matches++
		case engine.EventCancel:
			stats.Cancels++
		case engine.EventTimeoutFired:
			stats.Timeouts++
		}
	}
	return stats
}

func sessionStatus(s SessionSummary) string {
	switch {
	case !s.Finished:
		return "running"
	case s.Pass:
		return "pass"
	default:
		return "fail"
	}
}

func outputSessionList(w io.Writer, sessions []SessionSummary) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %-7s %-20s %s\n", s.ID, sessionStatus(s), s.Name, s.StartedAt.Local().Format(time.DateTime))
	}
}

func outputTraceText(w io.Writer, result TraceResult) {
	s := result.Session
	fmt.Fprintf(w, "Session: %s\n", s.ID)
	fmt.Fprintf(w, "Script:  %s\n", s.Name)
	fmt.Fprintf(w, "Command: %s %v\n", s.Command, s.Args)
	if s.Finished {
		fmt.Fprintf(w, "Status:  %s (exit %d)\n", sessionStatus(s), s.ExitCode)
	} else {
		fmt.Fprintf(w, "Status:  %s\n", sessionStatus(s))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Events ===")
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		printEvents(w, result.Events)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Expects:      %d\n", result.Stats.Expects)
	fmt.Fprintf(w, "  Matches:      %d\n", result.Stats.Matches)
	fmt.Fprintf(w, "  Cancels:      %d\n", result.Stats.Cancels)
	fmt.Fprintf(w, "  Timeouts:     %d\n", result.Stats.Timeouts)
}
