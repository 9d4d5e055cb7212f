package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/remotefs/cmd/rfs/cmdutil"
	fserrors "github.com/marmos91/remotefs/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	rmForce       bool
	rmInteractive bool
)

var rmCmd = &cobra.Command{
	Use:   "rm <url>...",
	Short: "Remove files",
	Long: `Remove one or more remote files. Directories are removed with rmdir.

Examples:
  rfs rm smb://fileserver/tmp/a.txt smb://fileserver/tmp/b.txt

  # Ask before each removal
  rfs rm -i smb://fileserver/docs/report.pdf

  # Ignore files that do not exist
  rfs rm -f smb://fileserver/tmp/maybe.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

func init() {
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "Ignore nonexistent files and never prompt")
	rmCmd.Flags().BoolVarP(&rmInteractive, "interactive", "i", false, "Prompt before every removal")
}

// RemoveResult is printed for JSON and YAML output.
type RemoveResult struct {
	Removed []string `json:"removed" yaml:"removed"`
}

func runRm(cmd *cobra.Command, args []string) error {
	urls, err := resolveAll(args)
	if err != nil {
		return err
	}

	result := RemoveResult{Removed: []string{}}
	err = cmdutil.WithClient(cmd.Context(), func(ctx context.Context, c *cmdutil.Client) error {
		for _, rawURL := range urls {
			display := cmdutil.Redact(rawURL)
			question := fmt.Sprintf("Remove %s?", display)
			err := cmdutil.RunWithConfirmation(cmd.ErrOrStderr(), question, rmForce || !rmInteractive, func() error {
				if err := c.Unlink(ctx, rawURL); err != nil {
					if rmForce && fserrors.IsNotFound(err) {
						return nil
					}
					return err
				}
				result.Removed = append(result.Removed, display)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("Removed %d file(s)", len(result.Removed))
	return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), result, msg)
}
