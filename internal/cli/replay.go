package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ilkecan/manyverse/internal/harness"
	"github.com/ilkecan/manyverse/internal/store"
	"github.com/ilkecan/manyverse/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Session string
}

// ReplayResult holds the replay result of one session.
type ReplayResult struct {
	Session       string      `json:"session"`
	Recorded      int         `json:"recorded"`
	Replayed      int         `json:"replayed"`
	Deterministic bool        `json:"deterministic"`
	Divergence    *Divergence `json:"divergence,omitempty"`
}

// Divergence is the first entry where the replay differs from the record.
type Divergence struct {
	Index    int    `json:"index"`
	Recorded string `json:"recorded,omitempty"`
	Replayed string `json:"replayed,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Re-run a scenario and verify determinism",
		Long: `Re-run a scenario on a fresh in-memory store under a recorded session id
and compare every entry id with the recorded trace.

Entry ids are content addresses over session, seq, kind, scope, bucket
and canonical payload, so equal ids mean byte-identical runs.

Exit codes:
  0 - Replay matches the recorded trace
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, unknown session, etc.)

Examples:
  manyverse replay --db ./manyverse.db --session demo scenarios/central_back.yaml
  manyverse replay --session demo --format json scenarios/central_back.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "recorded session to compare against (required)")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	ctx := context.Background()

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	st, err := store.Open(opts.Config.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	recorded, err := st.ReadTrace(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}
	if len(recorded) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no entries recorded for session %s", opts.Session))
	}

	scratch, err := store.Open(":memory:")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create in-memory store", err)
	}
	defer scratch.Close()

	replay, err := harness.Execute(ctx, scenario, scratch, harness.WithSession(opts.Session))
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := compareTraces(opts.Session, recorded, replay.Trace)
	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result)
}

// compareTraces compares entry ids position by position.
func compareTraces(session string, recorded, replayed []trace.Entry) ReplayResult {
	result := ReplayResult{
		Session:       session,
		Recorded:      len(recorded),
		Replayed:      len(replayed),
		Deterministic: true,
	}

	n := max(len(recorded), len(replayed))
	for i := 0; i < n; i++ {
		var a, b string
		if i < len(recorded) {
			a = describe(recorded[i])
		}
		if i < len(replayed) {
			b = describe(replayed[i])
		}
		if i < len(recorded) && i < len(replayed) && recorded[i].ID == replayed[i].ID {
			continue
		}
		result.Deterministic = false
		result.Divergence = &Divergence{Index: i, Recorded: a, Replayed: b}
		break
	}
	return result
}

func describe(e trace.Entry) string {
	if e.Kind == trace.KindEffect {
		return fmt.Sprintf("[%d] %s %s", e.Seq, e.Key(), canonical(e.Payload))
	}
	return fmt.Sprintf("[%d] state %s %s", e.Seq, displayScope(e.Scope), canonical(e.Payload))
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result, TraceID: result.Session}
	if !result.Deterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay of Session: %s\n", result.Session)
	fmt.Fprintf(w, "  Entries: %d recorded, %d replayed\n", result.Recorded, result.Replayed)
	fmt.Fprintln(w)

	if result.Deterministic {
		fmt.Fprintln(w, "✓ Replay verified deterministic")
		return nil
	}

	d := result.Divergence
	fmt.Fprintf(w, "✗ Diverged at entry %d\n", d.Index)
	fmt.Fprintf(w, "  Recorded: %s\n", orNone(d.Recorded))
	fmt.Fprintf(w, "  Replayed: %s\n", orNone(d.Replayed))
	return NewExitError(ExitFailure, "determinism verification failed")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
