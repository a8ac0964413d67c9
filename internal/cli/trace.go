package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ilkecan/manyverse/internal/scope"
	"github.com/ilkecan/manyverse/internal/store"
	"github.com/ilkecan/manyverse/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Session string
	Kind    string // optional - "state" or "effect"
	Scope   string // optional - only entries within this scope
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session  string        `json:"session"`
	Timeline []trace.Entry `json:"timeline"`
	Stats    TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEntries int            `json:"total_entries"`
	States       int            `json:"states"`
	Effects      int            `json:"effects"`
	Buckets      map[string]int `json:"buckets"`
}

// SessionList is the output of trace without --session.
type SessionList struct {
	Sessions []string `json:"sessions"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print a recorded trace",
		Long: `Print the recorded trace of a session in logical order.

Without --session, lists the recorded sessions oldest first.

The output includes:
- Timeline: state applications and effect emissions by seq
- Stats: entry counts per kind and per bucket

Examples:
  manyverse trace --db ./manyverse.db
  manyverse trace --db ./manyverse.db --session 0190c1e2-...
  manyverse trace --session demo --kind effect --scope central/connectionsTab
  manyverse trace --session demo --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "session to print")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter by entry kind (state|effect)")
	cmd.Flags().StringVar(&opts.Scope, "scope", "", "filter to entries within a scope")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	switch trace.Kind(opts.Kind) {
	case "", trace.KindState, trace.KindEffect:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q: must be state or effect", opts.Kind))
	}

	ctx := context.Background()

	st, err := store.Open(opts.Config.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session == "" {
		sessions, err := st.Sessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		return outputSessions(cmd, opts, sessions)
	}

	entries, err := st.ReadTrace(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	result := TraceResult{
		Session:  opts.Session,
		Timeline: filterEntries(entries, trace.Kind(opts.Kind), opts.Scope),
		Stats:    TraceStats{Buckets: make(map[string]int)},
	}
	for _, e := range result.Timeline {
		result.Stats.TotalEntries++
		switch e.Kind {
		case trace.KindState:
			result.Stats.States++
		case trace.KindEffect:
			result.Stats.Effects++
			result.Stats.Buckets[e.Bucket]++
		}
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// filterEntries keeps entries of kind (any when empty) emitted within ns
// (anywhere when empty).
func filterEntries(entries []trace.Entry, kind trace.Kind, ns string) []trace.Entry {
	out := make([]trace.Entry, 0, len(entries))
	for _, e := range entries {
		if kind != "" && e.Kind != kind {
			continue
		}
		if ns != "" && !scope.Within(ns, e.Scope) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func outputSessions(cmd *cobra.Command, opts *TraceOptions, sessions []string) error {
	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: SessionList{Sessions: sessions}})
	}

	w := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintln(w, s)
	}
	return nil
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{Status: "ok", Data: result, TraceID: result.Session})
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no entries)")
	}
	for _, e := range result.Timeline {
		formatEntry(w, e, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Entries: %d\n", result.Stats.TotalEntries)
	fmt.Fprintf(w, "  States:        %d\n", result.Stats.States)
	fmt.Fprintf(w, "  Effects:       %d\n", result.Stats.Effects)

	return nil
}

// formatEntry formats a single timeline entry for text output. State
// payloads are only printed in verbose mode.
func formatEntry(w io.Writer, e trace.Entry, verbose bool) {
	switch e.Kind {
	case trace.KindEffect:
		fmt.Fprintf(w, "  [%d] EFFECT %s %s\n", e.Seq, e.Key(), canonical(e.Payload))
	case trace.KindState:
		fmt.Fprintf(w, "  [%d] STATE %s\n", e.Seq, displayScope(e.Scope))
		if verbose {
			fmt.Fprintf(w, "       %s\n", canonical(e.Payload))
		}
	}
	if verbose {
		fmt.Fprintf(w, "       ID: %s\n", truncateID(e.ID))
	}
}

func canonical(v trace.Value) string {
	data, err := trace.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}

func displayScope(ns string) string {
	if ns == "" {
		return "(root)"
	}
	return ns
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
