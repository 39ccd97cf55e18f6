//go:build !windows

package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/expecto/engine"
)

func TestTrace_ListSessions(t *testing.T) {
	db := recordSession(t, "session-1")

	stdout, _, err := executeCommand("trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "session-1")
	assert.Contains(t, stdout, "pass")
	assert.Contains(t, stdout, "crossing")
}

func TestTrace_Session(t *testing.T) {
	db := recordSession(t, "session-1")

	stdout, _, err := executeCommand("trace", "--db", db, "session-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Session: session-1")
	assert.Contains(t, stdout, "Status:  pass (exit 0)")
	assert.Contains(t, stdout, "=== Events ===")
	assert.Contains(t, stdout, "Matches:      3")
}

func TestTrace_KindFilter(t *testing.T) {
	db := recordSession(t, "session-1")

	stdout, _, err := executeCommand("trace", "--db", db, "--format", "json", "--kind", "match", "session-1")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Events, 3)
	for _, ev := range resp.Data.Events {
		assert.Equal(t, engine.EventMatch, ev.Kind)
	}
	assert.Greater(t, resp.Data.Stats.TotalEvents, 3)
	assert.Equal(t, 3, resp.Data.Stats.Matches)
}

func TestTrace_UnknownSession(t *testing.T) {
	db := recordSession(t, "session-1")

	stdout, _, err := executeCommand("trace", "--db", db, "session-2")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E002]: session not found: session-2")
}

func TestTrace_MissingDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "absent.db")

	_, _, err := executeCommand("trace", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.NoFileExists(t, db)
}

func TestTrace_NoDatabase(t *testing.T) {
	_, _, err := executeCommand("trace")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "--db is required"))
}

func TestFilterEvents(t *testing.T) {
	events := []engine.Event{
		{Seq: 1, Kind: engine.EventExpect},
		{Seq: 2, Kind: engine.EventMatch},
		{Seq: 3, Kind: engine.EventSend},
	}
	assert.Len(t, filterEvents(events, ""), 3)
	assert.Equal(t, []engine.Event{{Seq: 2, Kind: engine.EventMatch}}, filterEvents(events, engine.EventMatch))
	assert.Empty(t, filterEvents(events, engine.EventTimeoutFired))
}
