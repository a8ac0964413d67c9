package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ilkecan/manyverse/internal/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate and print the resolved configuration",
		Long: `Resolve the config file against the built-in schema, apply flag
overrides and print the result. An invalid file or flag fails with exit
code 2 and the CUE position of the first error.

Examples:
  manyverse config
  manyverse config --config ./manyverse.cue --platform mobile
  manyverse config --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(rootOpts, cmd)
		},
	}

	return cmd
}

func runConfig(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	source := opts.ConfigPath
	if source == "" {
		source = config.DefaultFile + " or defaults"
	}
	formatter.VerboseLog("Resolved configuration from %s", source)

	if opts.Format == "json" {
		return formatter.Success(opts.Config)
	}

	out, err := config.Format(opts.Config)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to format config", err)
	}
	fmt.Fprint(formatter.Writer, string(out))
	return nil
}
