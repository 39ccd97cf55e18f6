package transcript

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/expecto/engine"
)

func lancelotTranscript() Transcript {
	return Transcript{
		SessionID: "0190a6f2-0000-7000-8000-000000000001",
		Name:      "lancelot",
		Command:   "keeper",
		Events: []engine.Event{
			{Seq: 1, Kind: engine.EventExpect, Pattern: "/name.*/"},
			{Seq: 2, Kind: engine.EventTimeoutArmed, Reason: "1s"},
			{Seq: 3, Kind: engine.EventChunk, Text: "What... is your name?\n"},
			{Seq: 4, Kind: engine.EventTimeoutCleared, Reason: "TIMEOUT_CLEARED"},
			{Seq: 5, Kind: engine.EventMatch, Pattern: "/name.*/", Text: "name?"},
			{Seq: 6, Kind: engine.EventSend, Text: "Lancelot\n"},
			{Seq: 7, Kind: engine.EventEOF},
		},
	}
}

func TestCollector_RecordsInOrder(t *testing.T) {
	c := NewCollector()
	for _, ev := range lancelotTranscript().Events {
		require.NoError(t, c.Record(ev))
	}

	events := c.Events()
	require.Len(t, events, 7)
	assert.Equal(t, engine.EventExpect, events[0].Kind)
	assert.Equal(t, engine.EventEOF, events[6].Kind)

	events[0].Kind = engine.EventReset
	assert.Equal(t, engine.EventExpect, c.Events()[0].Kind, "Events returns a copy")
}

func TestCollector_ConcurrentRecord(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Record(engine.Event{Seq: int64(i), Kind: engine.EventSend})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, c.Len())
}

func TestSnapshot_Golden(t *testing.T) {
	AssertGolden(t, "lancelot", lancelotTranscript())
}

func TestSnapshot_OmitsVolatileEvents(t *testing.T) {
	data, err := Snapshot(lancelotTranscript())
	require.NoError(t, err)

	s := string(data)
	assert.NotContains(t, s, "chunk")
	assert.NotContains(t, s, `"eof"`)
	assert.NotContains(t, s, "0190a6f2", "session id is not part of the snapshot")
}

func TestSnapshot_StableAcrossSeq(t *testing.T) {
	a := lancelotTranscript()
	b := lancelotTranscript()
	for i := range b.Events {
		b.Events[i].Seq += 100
	}

	sa, err := Snapshot(a)
	require.NoError(t, err)
	sb, err := Snapshot(b)
	require.NoError(t, err)
	assert.Equal(t, string(sa), string(sb))
}
