package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/expecto/engine"
	"github.com/roach88/expecto/internal/transcript"
)

// ErrSessionNotFound is returned when no session has the requested id.
var ErrSessionNotFound = errors.New("session not found")

// ReadSession retrieves a session header by id.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, command, args, started_at, finished, exit_code, pass
		FROM sessions
		WHERE id = ?
	`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("read session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns every session ordered by id. UUIDv7 ids sort in
// creation order.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, command, args, started_at, finished, exit_code, pass
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadEvents returns a session's events in seq order.
//
// Returns an empty slice (not nil) if the session has no events.
func (s *Store) ReadEvents(ctx context.Context, sessionID string) ([]engine.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, pattern, text, reason
		FROM events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []engine.Event{}
	for rows.Next() {
		var (
			ev   engine.Event
			kind string
		)
		if err := rows.Scan(&ev.Seq, &kind, &ev.Pattern, &ev.Text, &ev.Reason); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = engine.EventKind(kind)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadTranscript loads a session and its events as a Transcript.
func (s *Store) ReadTranscript(ctx context.Context, id string) (transcript.Transcript, error) {
	sess, err := s.ReadSession(ctx, id)
	if err != nil {
		return transcript.Transcript{}, err
	}
	events, err := s.ReadEvents(ctx, id)
	if err != nil {
		return transcript.Transcript{}, err
	}
	return transcript.Transcript{
		SessionID: sess.ID,
		Name:      sess.Name,
		Command:   sess.Command,
		Args:      sess.Args,
		Events:    events,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		sess    Session
		args    string
		started string
	)
	if err := row.Scan(
		&sess.ID,
		&sess.Name,
		&sess.Command,
		&args,
		&started,
		&sess.Finished,
		&sess.ExitCode,
		&sess.Pass,
	); err != nil {
		return Session{}, err
	}

	var err error
	if sess.Args, err = unmarshalArgs(args); err != nil {
		return Session{}, err
	}
	if sess.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Session{}, fmt.Errorf("parse started_at: %w", err)
	}
	return sess, nil
}
