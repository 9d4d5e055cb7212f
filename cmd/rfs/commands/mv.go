package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/remotefs/cmd/rfs/cmdutil"
	"github.com/spf13/cobra"
)

var mvCmd = &cobra.Command{
	Use:   "mv <from-url> <to-url>",
	Short: "Rename a file or directory",
	Long: `Rename a remote file or directory.

Both URLs must resolve to the same server and credentials.

Examples:
  rfs mv smb://fileserver/docs/draft.txt smb://fileserver/docs/final.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runMv,
}

// MoveResult is printed for JSON and YAML output.
type MoveResult struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

func runMv(cmd *cobra.Command, args []string) error {
	from, err := cmdutil.ResolveURL(args[0])
	if err != nil {
		return err
	}
	to, err := cmdutil.ResolveURL(args[1])
	if err != nil {
		return err
	}

	err = cmdutil.WithClient(cmd.Context(), func(ctx context.Context, c *cmdutil.Client) error {
		return c.Rename(ctx, from, to)
	})
	if err != nil {
		return err
	}

	result := MoveResult{From: cmdutil.Redact(from), To: cmdutil.Redact(to)}
	return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), result,
		fmt.Sprintf("Renamed %s to %s", result.From, result.To))
}
