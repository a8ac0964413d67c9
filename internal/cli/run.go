package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ilkecan/manyverse/internal/engine"
	"github.com/ilkecan/manyverse/internal/harness"
	"github.com/ilkecan/manyverse/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Session string

	// Sessions overrides the session id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Sessions engine.TokenGenerator
}

// RunResult is the outcome of one scripted run.
type RunResult struct {
	Scenario string   `json:"scenario"`
	Session  string   `json:"session"`
	Entries  int      `json:"entries"`
	Effects  []string `json:"effects"`
	Screens  []string `json:"screens"`
	Pass     bool     `json:"pass"`
	Errors   []string `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and record its trace",
		Long: `Mount the scenario's root screen headless, feed it the scripted
inputs and record every state application and effect to the database.

Each run records under a fresh session id unless --session is given;
reusing a session appends to it.

Exit codes:
  0 - Run finished and every assertion held
  1 - One or more assertions failed
  2 - Command error (invalid scenario, database error, etc.)

Example:
  manyverse run --db ./manyverse.db scenarios/thread_reply.yaml
  manyverse run --session demo --format json scenarios/central_back.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "trace session id (default: new UUIDv7)")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	session := opts.Session
	if session == "" {
		gen := opts.Sessions
		if gen == nil {
			gen = engine.UUIDv7Generator{}
		}
		session = gen.Generate()
	}

	slog.Info("opening database", "path", opts.Config.DB)
	st, err := store.Open(opts.Config.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	slog.Info("running scenario", "name", scenario.Name, "session", session)
	result, err := harness.Execute(ctx, scenario, st, harness.WithSession(session))
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	out := RunResult{
		Scenario: scenario.Name,
		Session:  session,
		Entries:  len(result.Trace),
		Effects:  harness.EffectLines(result.Trace),
		Screens:  result.Screens,
		Pass:     result.Pass,
		Errors:   result.Errors,
	}
	if out.Effects == nil {
		out.Effects = []string{}
	}

	if opts.Format == "json" {
		return outputRunJSON(cmd, out)
	}
	return outputRunText(cmd, out)
}

func outputRunJSON(cmd *cobra.Command, result RunResult) error {
	response := CLIResponse{Status: "ok", Data: result, TraceID: result.Session}
	if !result.Pass {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_ASSERTION",
			Message: fmt.Sprintf("%d assertion(s) failed", len(result.Errors)),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("%d assertion(s) failed", len(result.Errors)))
	}
	return nil
}

func outputRunText(cmd *cobra.Command, result RunResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Scenario: %s\n", result.Scenario)
	fmt.Fprintf(w, "Session:  %s\n", result.Session)
	fmt.Fprintf(w, "Entries:  %d\n", result.Entries)
	fmt.Fprintf(w, "Screens:  %v\n", result.Screens)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Effects ===")
	if len(result.Effects) == 0 {
		fmt.Fprintln(w, "  (no effects)")
	}
	for _, line := range result.Effects {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintln(w)

	if !result.Pass {
		for _, e := range result.Errors {
			fmt.Fprintf(w, "✗ %s\n", e)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d assertion(s) failed", len(result.Errors)))
	}

	fmt.Fprintln(w, "✓ All assertions passed")
	return nil
}
