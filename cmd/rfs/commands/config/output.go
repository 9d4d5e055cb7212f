package config

import (
	"fmt"

	"github.com/marmos91/remotefs/internal/cli/credentials"
	"github.com/marmos91/remotefs/internal/cli/output"
	"github.com/spf13/cobra"
)

var outputCmd = &cobra.Command{
	Use:   "output [table|json|yaml]",
	Short: "Show or set the default output format",
	Long: `Show or set the output format used when --output is not given.

Examples:
  rfs config output
  rfs config output json`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"table", "json", "yaml"},
	RunE:      runConfigOutput,
}

func runConfigOutput(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}
	prefs := store.GetPreferences()

	if len(args) == 0 {
		format, err := output.ParseFormat(prefs.DefaultOutput)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), format)
		return nil
	}

	format, err := output.ParseFormat(args[0])
	if err != nil {
		return err
	}
	prefs.DefaultOutput = format.String()
	if err := store.SetPreferences(prefs); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Default output format set to %s\n", format)
	return nil
}
