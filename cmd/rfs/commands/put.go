package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/remotefs/cmd/rfs/cmdutil"
	"github.com/marmos91/remotefs/pkg/transfer"
	"github.com/spf13/cobra"
)

var (
	putAppend     bool
	putBufferSize int
)

var putCmd = &cobra.Command{
	Use:   "put <local-file|-> <url>",
	Short: "Upload a file",
	Long: `Write a local file, or standard input when the source is "-", to a
remote file. The remote file is created or truncated unless --append is
given.

Examples:
  rfs put report.pdf smb://fileserver/docs/report.pdf

  # From a pipe
  tar cz src | rfs put - smb://fileserver/backups/src.tgz

  # Append to a log
  echo "done" | rfs put --append - smb://fileserver/logs/run.log`,
	Args: cobra.ExactArgs(2),
	RunE: runPut,
}

func init() {
	putCmd.Flags().BoolVarP(&putAppend, "append", "a", false, "Append instead of truncating")
	putCmd.Flags().IntVar(&putBufferSize, "buffer-size", 0, "Write size in bytes (default: client.buffer_size)")
}

// PutResult is printed for JSON and YAML output.
type PutResult struct {
	Source       string `json:"source" yaml:"source"`
	URL          string `json:"url" yaml:"url"`
	BytesWritten int64  `json:"bytes_written" yaml:"bytes_written"`
	Append       bool   `json:"append" yaml:"append"`
}

func runPut(cmd *cobra.Command, args []string) error {
	source := args[0]
	rawURL, err := cmdutil.ResolveURL(args[1])
	if err != nil {
		return err
	}

	var r io.Reader = cmd.InOrStdin()
	if source != "-" {
		f, err := os.Open(source)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var written int64
	err = cmdutil.WithClient(cmd.Context(), func(ctx context.Context, c *cmdutil.Client) error {
		opts := c.TransferOptions(putBufferSize)
		opts.Append = putAppend

		var err error
		written, err = transfer.Upload(ctx, c.Dispatcher, rawURL, r, opts)
		return err
	})
	if err != nil {
		return err
	}

	result := PutResult{
		Source:       source,
		URL:          cmdutil.Redact(rawURL),
		BytesWritten: written,
		Append:       putAppend,
	}
	msg := fmt.Sprintf("Wrote %s to %s", humanize.IBytes(uint64(written)), result.URL)
	return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), result, msg)
}
