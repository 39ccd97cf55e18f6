package store

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/expecto/engine"
	"github.com/roach88/expecto/internal/testutil"
	"github.com/roach88/expecto/pattern"
)

func TestSessionRecorder_PersistsEngineEvents(t *testing.T) {
	s := createTestStore(t)
	ctx := testContext(t)

	require.NoError(t, s.WriteSession(ctx, createTestSession("s1")))

	pr, pw := io.Pipe()
	var out bytes.Buffer
	e, err := engine.New(engine.Config{
		Input:          pr,
		Output:         &out,
		SessionID:      "s1",
		DefaultTimeout: -1,
		Timers:         testutil.NewFakeTimers(),
		Recorder:       s.Recorder(ctx, "s1"),
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	m := e.Expect(pattern.Literal("name?"))
	_, err = pw.Write([]byte("What is your name?"))
	require.NoError(t, err)
	_, err = m.Wait(ctx)
	require.NoError(t, err)
	require.NoError(t, e.SendLine("Lancelot"))

	pw.Close()
	e.Stop()
	<-done

	events, err := s.ReadEvents(ctx, "s1")
	require.NoError(t, err)

	var kinds []engine.EventKind
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Subset(t, kinds, []engine.EventKind{
		engine.EventExpect, engine.EventChunk, engine.EventMatch, engine.EventSend,
	})
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Seq, events[i-1].Seq)
	}
}

func TestSessionRecorder_UnknownSessionErrors(t *testing.T) {
	s := createTestStore(t)

	r := s.Recorder(testContext(t), "missing")
	assert.Error(t, r.Record(engine.Event{Seq: 1, Kind: engine.EventSend}))
}
