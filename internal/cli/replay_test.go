package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkecan/manyverse/internal/trace"
)

// record runs a scenario into the options' database under session.
func record(t *testing.T, opts *RootOptions, scenario, session string) {
	t.Helper()
	cmd := NewRunCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--session", session, scenarioPath(scenario)})
	require.NoError(t, cmd.Execute())
}

func TestReplayMissingSessionFlag(t *testing.T) {
	cmd := NewReplayCommand(newRootOpts(t, "text"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{scenarioPath("central_back")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayUnknownSession(t *testing.T) {
	cmd := NewReplayCommand(newRootOpts(t, "text"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--session", "nope", scenarioPath("central_back")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no entries recorded")
}

func TestReplayNonExistentDatabase(t *testing.T) {
	opts := newRootOpts(t, "text")
	opts.Config.DB = "/nonexistent/path/test.db"

	cmd := NewReplayCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--session", "demo", scenarioPath("central_back")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestReplayDeterministic(t *testing.T) {
	opts := newRootOpts(t, "text")
	record(t, opts, "thread_reply", "demo")

	buf := &bytes.Buffer{}
	cmd := NewReplayCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--session", "demo", scenarioPath("thread_reply")})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Replay of Session: demo")
	assert.Contains(t, buf.String(), "✓ Replay verified deterministic")
}

func TestReplayDeterministicJSON(t *testing.T) {
	opts := newRootOpts(t, "text")
	record(t, opts, "connections_forget", "demo")
	opts.Format = "json"

	buf := &bytes.Buffer{}
	cmd := NewReplayCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--session", "demo", scenarioPath("connections_forget")})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Deterministic)
	assert.Equal(t, resp.Data.Recorded, resp.Data.Replayed)
	assert.Nil(t, resp.Data.Divergence)
}

func TestReplayDetectsDivergence(t *testing.T) {
	opts := newRootOpts(t, "text")
	record(t, opts, "central_back", "demo")

	buf := &bytes.Buffer{}
	cmd := NewReplayCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--session", "demo", scenarioPath("thread_reply")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ Diverged at entry")
}

func TestReplayHelpText(t *testing.T) {
	cmd := NewReplayCommand(&RootOptions{})
	assert.Contains(t, cmd.Long, "determinism")
	assert.Contains(t, cmd.Long, "Exit codes")
}

func TestCompareTraces(t *testing.T) {
	entry := func(seq int64, bucket string) trace.Entry {
		e, err := trace.NewEntry("s", seq, trace.KindEffect, "central", bucket, map[string]any{})
		require.NoError(t, err)
		return e
	}
	a := []trace.Entry{entry(1, "toast"), entry(2, "exit")}

	same := compareTraces("s", a, []trace.Entry{entry(1, "toast"), entry(2, "exit")})
	assert.True(t, same.Deterministic)
	assert.Nil(t, same.Divergence)

	changed := compareTraces("s", a, []trace.Entry{entry(1, "toast"), entry(2, "share")})
	require.NotNil(t, changed.Divergence)
	assert.Equal(t, 1, changed.Divergence.Index)
	assert.Equal(t, "[2] central#exit {}", changed.Divergence.Recorded)
	assert.Equal(t, "[2] central#share {}", changed.Divergence.Replayed)

	short := compareTraces("s", a, a[:1])
	require.NotNil(t, short.Divergence)
	assert.Equal(t, 1, short.Divergence.Index)
	assert.Empty(t, short.Divergence.Replayed)
}

func TestOrNone(t *testing.T) {
	assert.Equal(t, "(none)", orNone(""))
	assert.Equal(t, "x", orNone("x"))
}
