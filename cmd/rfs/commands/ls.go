package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/remotefs/cmd/rfs/cmdutil"
	"github.com/marmos91/remotefs/internal/cli/output"
	"github.com/marmos91/remotefs/internal/cli/timeutil"
	"github.com/marmos91/remotefs/pkg/transfer"
	"github.com/spf13/cobra"
)

var (
	lsLong     bool
	lsParallel int
)

var lsCmd = &cobra.Command{
	Use:   "ls <url>",
	Short: "List a directory",
	Long: `List the entries of a remote directory, sorted by name.

A URL naming only a server lists its shares.

Examples:
  # Names only
  rfs ls smb://fileserver/docs

  # With type, permissions, size and modification time
  rfs ls -l smb://alice@fileserver/docs/reports

  # As JSON
  rfs ls -l -o json smb://fileserver/docs`,
	Args: cobra.ExactArgs(1),
	RunE: runLs,
}

func init() {
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "Show details for each entry")
	lsCmd.Flags().IntVar(&lsParallel, "parallel", transfer.DefaultParallelStats, "Concurrent stat calls for --long")
}

// nameList renders entries as a single NAME column.
type nameList []transfer.Entry

func (l nameList) Headers() []string { return []string{"NAME", "TYPE"} }

func (l nameList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		rows = append(rows, []string{e.Name, e.Type.String()})
	}
	return rows
}

// longList renders entries the way ls -l does.
type longList struct {
	entries []transfer.Entry
	now     time.Time
}

func (l longList) Headers() []string {
	return []string{"TYPE", "PERM", "SIZE", "MODIFIED", "NAME"}
}

// Alignments implements output.ColumnAligner.
func (l longList) Alignments() []output.Align {
	return []output.Align{output.AlignLeft, output.AlignLeft, output.AlignRight}
}

func (l longList) Rows() [][]string {
	rows := make([][]string, 0, len(l.entries))
	for _, e := range l.entries {
		perm, size, modified := "-", "-", "-"
		if e.Stat != nil {
			perm = e.Stat.FileMode().String()
			if !e.Stat.IsDir() {
				size = humanize.IBytes(e.Stat.Size)
			}
			modified = timeutil.FormatModTime(e.Stat.ModTime(), l.now)
		}
		rows = append(rows, []string{e.Type.String(), perm, size, modified, e.Name})
	}
	return rows
}

func runLs(cmd *cobra.Command, args []string) error {
	rawURL, err := cmdutil.ResolveURL(args[0])
	if err != nil {
		return err
	}

	var entries []transfer.Entry
	err = cmdutil.WithClient(cmd.Context(), func(ctx context.Context, c *cmdutil.Client) error {
		if lsLong {
			var err error
			entries, err = transfer.ListDetailed(ctx, c.Dispatcher, rawURL, transfer.Options{ParallelStats: lsParallel})
			return err
		}
		dirents, err := transfer.ReadDir(ctx, c.Dispatcher, rawURL)
		if err != nil {
			return err
		}
		entries = make([]transfer.Entry, 0, len(dirents))
		for _, de := range dirents {
			entries = append(entries, transfer.Entry{Name: de.Name, Type: de.Type})
		}
		return nil
	})
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []transfer.Entry{}
	}

	emptyMsg := fmt.Sprintf("%s is empty.", cmdutil.Redact(rawURL))
	if lsLong {
		return cmdutil.PrintOutput(cmd.OutOrStdout(), entries, len(entries) == 0, emptyMsg, longList{entries: entries, now: time.Now()})
	}
	return cmdutil.PrintOutput(cmd.OutOrStdout(), entries, len(entries) == 0, emptyMsg, nameList(entries))
}
