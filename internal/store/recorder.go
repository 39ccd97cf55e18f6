package store

import (
	"context"

	"github.com/roach88/expecto/engine"
)

// SessionRecorder writes engine events into one session's log.
// Implements engine.Recorder.
type SessionRecorder struct {
	ctx       context.Context
	store     *Store
	sessionID string
}

// Recorder returns a recorder bound to sessionID. ctx bounds every write;
// once it is done, Record returns its error.
func (s *Store) Recorder(ctx context.Context, sessionID string) *SessionRecorder {
	return &SessionRecorder{ctx: ctx, store: s, sessionID: sessionID}
}

// Record persists ev.
func (r *SessionRecorder) Record(ev engine.Event) error {
	return r.store.WriteEvent(r.ctx, r.sessionID, ev)
}

var _ engine.Recorder = (*SessionRecorder)(nil)
