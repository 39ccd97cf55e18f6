package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/expecto/engine"
	"github.com/roach88/expecto/internal/transcript"
)

// Session is the header row of one recorded run.
type Session struct {
	ID        string
	Name      string
	Command   string
	Args      []string
	StartedAt time.Time
	Finished  bool
	ExitCode  int
	Pass      bool
}

// WriteSession inserts a session header.
// Uses ON CONFLICT(id) DO NOTHING so a retried write is not an error.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return fmt.Errorf("write session: empty id")
	}
	args := sess.Args
	if args == nil {
		args = []string{}
	}
	argsJSON, err := transcript.MarshalCanonical(args)
	if err != nil {
		return fmt.Errorf("write session: marshal args: %w", err)
	}
	started := sess.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, name, command, args, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.Name,
		sess.Command,
		string(argsJSON),
		started.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// FinishSession records how a session ended.
func (s *Store) FinishSession(ctx context.Context, id string, exitCode int, pass bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET finished = 1, exit_code = ?, pass = ?
		WHERE id = ?
	`, exitCode, pass, id)
	if err != nil {
		return fmt.Errorf("finish session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish session %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("finish session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}

// WriteEvent appends one event to a session's log.
// Uses ON CONFLICT DO NOTHING: (session_id, seq) identifies an event, so
// writing the same event twice is a no-op.
//
// The session must exist (foreign key constraint).
func (s *Store) WriteEvent(ctx context.Context, sessionID string, ev engine.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (session_id, seq, kind, pattern, text, reason)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		sessionID,
		ev.Seq,
		string(ev.Kind),
		ev.Pattern,
		ev.Text,
		ev.Reason,
	)
	if err != nil {
		return fmt.Errorf("write event %d: %w", ev.Seq, err)
	}
	return nil
}

func unmarshalArgs(data string) ([]string, error) {
	var args []string
	if err := json.Unmarshal([]byte(data), &args); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	if args == nil {
		args = []string{}
	}
	return args, nil
}
