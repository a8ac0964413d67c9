package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ilkecan/manyverse/internal/harness"
)

// ValidationError is one invalid scenario file.
type ValidationError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file-or-dir>...",
		Short: "Validate scenario files without running them",
		Long: `Parse scenario files and check required fields, step inputs and
assertions without mounting any screen. Directories are searched for
.yaml and .yml files.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("path not found: %s", p), nil)
			return WrapExitError(ExitCommandError, "path not found", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := findScenarioFiles(p, "")
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list scenarios", err)
		}
		formatter.VerboseLog("Found %d scenario file(s) in %s", len(found), p)
		files = append(files, found...)
	}

	result := ValidationResult{Valid: true, Files: len(files)}
	for _, f := range files {
		formatter.VerboseLog("Validating %s", f)
		if _, err := harness.LoadScenario(f); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{File: f, Message: err.Error()})
		}
	}

	if !result.Valid {
		if err := formatter.Error(ErrCodeInvalid, fmt.Sprintf("%d invalid scenario file(s)", len(result.Errors)), result.Errors); err != nil {
			return err
		}
		if opts.Format != "json" {
			for _, e := range result.Errors {
				fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.File, e.Message)
			}
		}
		return NewExitError(ExitFailure, "validation failed")
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("✓ %d scenario file(s) valid", result.Files))
}
