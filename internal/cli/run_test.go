package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkecan/manyverse/internal/engine"
	"github.com/ilkecan/manyverse/internal/store"
)

func TestRunMissingScenarioArg(t *testing.T) {
	cmd := NewRunCommand(newRootOpts(t, "text"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestRunNonExistentScenario(t *testing.T) {
	cmd := NewRunCommand(newRootOpts(t, "text"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"/nonexistent/scenario.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load scenario")
}

func TestRunNonExistentDatabaseDir(t *testing.T) {
	opts := newRootOpts(t, "text")
	opts.Config.DB = "/nonexistent/path/manyverse.db"

	cmd := NewRunCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{scenarioPath("central_back")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestRunScenarioText(t *testing.T) {
	rootOpts := newRootOpts(t, "text")
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	opts := &RunOptions{RootOptions: rootOpts, Sessions: engine.NewFixedGenerator("session-1")}
	require.NoError(t, runScenarioFile(opts, scenarioPath("central_back"), cmd))

	output := buf.String()
	assert.Contains(t, output, "Scenario: central_back")
	assert.Contains(t, output, "Session:  session-1")
	assert.Contains(t, output, "central#exit {}")
	assert.Contains(t, output, "All assertions passed")

	st, err := store.Open(rootOpts.Config.DB)
	require.NoError(t, err)
	defer st.Close()

	sessions, err := st.Sessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"session-1"}, sessions)
}

func TestRunScenarioJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(newRootOpts(t, "json"))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--session", "demo", scenarioPath("thread_reply")})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status  string    `json:"status"`
		Data    RunResult `json:"data"`
		TraceID string    `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "demo", resp.TraceID)
	assert.True(t, resp.Data.Pass)
	assert.Equal(t, []string{"central"}, resp.Data.Screens)
	assert.Len(t, resp.Data.Effects, 4)
	assert.Greater(t, resp.Data.Entries, len(resp.Data.Effects))
}

func TestRunFailedAssertions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wrong.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: wrong
description: Expects two exits from a single back press
steps:
  - back: true
assertions:
  - type: trace_count
    key: "central#exit"
    count: 2
`), 0644))

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(newRootOpts(t, "text"))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ assertions[0]")
}

func TestRunHelpText(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{})
	assert.Contains(t, cmd.Long, "Exit codes")
	assert.Contains(t, cmd.Long, "--session")
}
