package commands

import (
	"context"

	"github.com/marmos91/remotefs/cmd/rfs/cmdutil"
	"github.com/marmos91/remotefs/pkg/transfer"
	"github.com/spf13/cobra"
)

var catBufferSize int

var catCmd = &cobra.Command{
	Use:   "cat <url>...",
	Short: "Print file contents",
	Long: `Stream one or more remote files to standard output, in order.

Examples:
  rfs cat smb://fileserver/docs/readme.txt

  # Download to a local file
  rfs cat smb://fileserver/media/video.mp4 > video.mp4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCat,
}

func init() {
	catCmd.Flags().IntVar(&catBufferSize, "buffer-size", 0, "Read size in bytes (default: client.buffer_size)")
}

func runCat(cmd *cobra.Command, args []string) error {
	urls := make([]string, 0, len(args))
	for _, arg := range args {
		rawURL, err := cmdutil.ResolveURL(arg)
		if err != nil {
			return err
		}
		urls = append(urls, rawURL)
	}

	return cmdutil.WithClient(cmd.Context(), func(ctx context.Context, c *cmdutil.Client) error {
		opts := c.TransferOptions(catBufferSize)
		for _, rawURL := range urls {
			if _, err := transfer.Download(ctx, c.Dispatcher, rawURL, cmd.OutOrStdout(), opts); err != nil {
				return err
			}
		}
		return nil
	})
}
