package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "thread_reply.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "thread_reply", scenario.Name)
	assert.Equal(t, ScreenThread, scenario.Screen)
	assert.Equal(t, "%root", scenario.Props["rootMsgId"])
	assert.Equal(t, "@me.ed25519", scenario.Setup.Self)
	require.Len(t, scenario.Setup.Log, 2)
	assert.Equal(t, "%root", scenario.Setup.Log[1].Content["root"])
	require.Len(t, scenario.Steps, 5)
	assert.Equal(t, payloadReaction, scenario.Steps[0].UI.As)
	assert.Len(t, scenario.Assertions, 6)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseScenario_Minimal(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: minimal
description: "one back press"
steps:
  - back: true
`))
	require.NoError(t, err)

	assert.Empty(t, scenario.Screen)
	assert.True(t, scenario.Steps[0].Back)
	assert.Empty(t, scenario.Assertions)
}

func TestParseScenario_DialogAnswers(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: dialogs
description: "every answer kind"
steps:
  - dialog: {select: forget}
  - dialog: {positive: "new name"}
  - dialog: {negative: true}
  - dialog: {dismiss: true}
`))
	require.NoError(t, err)

	assert.Equal(t, "forget", scenario.Steps[0].Dialog.Select)
	require.NotNil(t, scenario.Steps[1].Dialog.Positive)
	assert.Equal(t, "new name", *scenario.Steps[1].Dialog.Positive)
	assert.True(t, scenario.Steps[2].Dialog.Negative)
	assert.True(t, scenario.Steps[3].Dialog.Dismiss)
}

func TestParseScenario_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nsteps: [{back: true}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nsteps: [{back: true}]\n",
			want: "description is required",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\n",
			want: "steps list is required",
		},
		{
			name: "unknown field",
			yaml: "name: n\ndescription: d\nflow: []\nsteps: [{back: true}]\n",
			want: "field flow not found",
		},
		{
			name: "unknown screen",
			yaml: "name: n\ndescription: d\nscreen: settings\nsteps: [{back: true}]\n",
			want: `unknown screen "settings"`,
		},
		{
			name: "thread without root",
			yaml: "name: n\ndescription: d\nscreen: thread\nsteps: [{back: true}]\n",
			want: "props.rootMsgId is required",
		},
		{
			name: "two inputs in one step",
			yaml: "name: n\ndescription: d\nsteps: [{back: true, self: '@a'}]\n",
			want: "steps[0]: exactly one input is required, got 2",
		},
		{
			name: "empty step",
			yaml: "name: n\ndescription: d\nsteps: [{}]\n",
			want: "exactly one input is required, got 0",
		},
		{
			name: "ui without type",
			yaml: "name: n\ndescription: d\nsteps: [{ui: {selector: fab}}]\n",
			want: "selector and type are required",
		},
		{
			name: "unknown payload type",
			yaml: "name: n\ndescription: d\nsteps: [{ui: {selector: fab, type: press, as: blob}}]\n",
			want: `unknown payload type "blob"`,
		},
		{
			name: "two dialog answers",
			yaml: "name: n\ndescription: d\nsteps: [{dialog: {negative: true, dismiss: true}}]\n",
			want: "exactly one answer is required",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\nsteps: [{back: true}]\nassertions: [{type: eventually}]\n",
			want: `unknown assertion type "eventually"`,
		},
		{
			name: "trace_order without keys",
			yaml: "name: n\ndescription: d\nsteps: [{back: true}]\nassertions: [{type: trace_order}]\n",
			want: "keys list is required",
		},
		{
			name: "key without bucket",
			yaml: "name: n\ndescription: d\nsteps: [{back: true}]\nassertions: [{type: trace_count, key: central, count: 1}]\n",
			want: `key "central" has no bucket`,
		},
		{
			name: "unknown bucket",
			yaml: "name: n\ndescription: d\nsteps: [{back: true}]\nassertions: [{type: trace_contains, key: 'central#quit'}]\n",
			want: `unknown bucket "quit"`,
		},
		{
			name: "unknown bucket in order",
			yaml: "name: n\ndescription: d\nsteps: [{back: true}]\nassertions: [{type: trace_order, keys: ['#ssb', '#nav']}]\n",
			want: "assertions[0].keys[1]",
		},
		{
			name: "final_state without path",
			yaml: "name: n\ndescription: d\nsteps: [{back: true}]\nassertions: [{type: final_state, expect: 1}]\n",
			want: "path is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
