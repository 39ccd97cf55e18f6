package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/expecto/engine"
)

func TestReadSession_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := testContext(t)

	want := createTestSession("s1")
	require.NoError(t, s.WriteSession(ctx, want))

	got, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Command, got.Command)
	assert.Equal(t, want.Args, got.Args)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.False(t, got.Finished)
}

func TestReadSession_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSession(testContext(t), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListSessions_Empty(t *testing.T) {
	s := createTestStore(t)

	sessions, err := s.ListSessions(testContext(t))
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestListSessions_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := testContext(t)

	for _, id := range []string{"0193-c", "0193-a", "0193-b"} {
		require.NoError(t, s.WriteSession(ctx, createTestSession(id)))
	}

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)

	var ids []string
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	assert.Equal(t, []string{"0193-a", "0193-b", "0193-c"}, ids)
}

func TestReadEvents_SeqOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := testContext(t)

	require.NoError(t, s.WriteSession(ctx, createTestSession("s1")))
	events := []engine.Event{
		{Seq: 3, Kind: engine.EventMatch, Pattern: "/name/", Text: "name?"},
		{Seq: 1, Kind: engine.EventExpect, Pattern: "/name/"},
		{Seq: 2, Kind: engine.EventTimeoutCleared, Reason: "TIMEOUT_CLEARED"},
	}
	for _, ev := range events {
		require.NoError(t, s.WriteEvent(ctx, "s1", ev))
	}

	got, err := s.ReadEvents(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, events[1], got[0])
	assert.Equal(t, events[2], got[1])
	assert.Equal(t, events[0], got[2])
}

func TestReadEvents_ScopedToSession(t *testing.T) {
	s := createTestStore(t)
	ctx := testContext(t)

	require.NoError(t, s.WriteSession(ctx, createTestSession("s1")))
	require.NoError(t, s.WriteSession(ctx, createTestSession("s2")))
	require.NoError(t, s.WriteEvent(ctx, "s1", engine.Event{Seq: 1, Kind: engine.EventSend, Text: "a"}))
	require.NoError(t, s.WriteEvent(ctx, "s2", engine.Event{Seq: 1, Kind: engine.EventSend, Text: "b"}))

	got, err := s.ReadEvents(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Text)
}

func TestReadTranscript(t *testing.T) {
	s := createTestStore(t)
	ctx := testContext(t)

	require.NoError(t, s.WriteSession(ctx, createTestSession("s1")))
	require.NoError(t, s.WriteEvent(ctx, "s1", engine.Event{Seq: 1, Kind: engine.EventExpect, Pattern: "/x/"}))

	tr, err := s.ReadTranscript(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", tr.SessionID)
	assert.Equal(t, "lancelot", tr.Name)
	assert.Equal(t, "keeper", tr.Command)
	assert.Len(t, tr.Events, 1)
}

func TestReadTranscript_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadTranscript(testContext(t), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
