package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/remotefs/cmd/rfs/cmdutil"
	"github.com/marmos91/remotefs/pkg/native"
	"github.com/spf13/cobra"
)

var chmodCmd = &cobra.Command{
	Use:   "chmod <mode> <url>...",
	Short: "Change permission bits",
	Long: `Set the permission bits of remote files or directories.

The mode is octal. Backends without POSIX permissions may only honor the
owner write bit.

Examples:
  rfs chmod 0640 smb://fileserver/docs/report.pdf`,
	Args: cobra.MinimumNArgs(2),
	RunE: runChmod,
}

// ChmodResult is printed for JSON and YAML output.
type ChmodResult struct {
	Mode    string   `json:"mode" yaml:"mode"`
	Changed []string `json:"changed" yaml:"changed"`
}

func runChmod(cmd *cobra.Command, args []string) error {
	mode, err := native.ParsePerm(args[0])
	if err != nil {
		return err
	}
	urls, err := resolveAll(args[1:])
	if err != nil {
		return err
	}

	result := ChmodResult{Mode: fmt.Sprintf("%04o", mode), Changed: []string{}}
	err = cmdutil.WithClient(cmd.Context(), func(ctx context.Context, c *cmdutil.Client) error {
		for _, rawURL := range urls {
			if err := c.Chmod(ctx, rawURL, mode); err != nil {
				return err
			}
			result.Changed = append(result.Changed, cmdutil.Redact(rawURL))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), result,
		fmt.Sprintf("Changed mode of %d path(s) to %s", len(result.Changed), result.Mode))
}
