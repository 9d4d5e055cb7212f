package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/remotefs/cmd/rfs/cmdutil"
	"github.com/marmos91/remotefs/internal/cli/timeutil"
	"github.com/marmos91/remotefs/internal/gateway/handlers"
	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <url>",
	Short: "Show file or directory attributes",
	Long: `Show the attributes of a remote file or directory.

Examples:
  rfs stat smb://fileserver/docs/report.pdf
  rfs stat -o yaml smb://fileserver/docs`,
	Args: cobra.ExactArgs(1),
	RunE: runStat,
}

// statTable renders a StatResponse as FIELD/VALUE rows.
type statTable struct {
	handlers.StatResponse
	now time.Time
}

func (s statTable) Headers() []string { return []string{"FIELD", "VALUE"} }

func (s statTable) Rows() [][]string {
	st := s.Stat
	size := fmt.Sprintf("%s (%d bytes)", humanize.IBytes(st.Size), st.Size)
	return [][]string{
		{"URL", s.URL},
		{"Type", s.Type},
		{"Mode", fmt.Sprintf("%s (%s)", st.FileMode(), s.Perm)},
		{"Size", size},
		{"Blocks", strconv.FormatUint(uint64(st.Blocks), 10)},
		{"Links", strconv.FormatUint(uint64(st.Nlink), 10)},
		{"Inode", strconv.FormatUint(uint64(st.Ino), 10)},
		{"Owner", fmt.Sprintf("%d:%d", st.UID, st.GID)},
		{"Modified", timestamp(st.Mtime, s.now)},
		{"Accessed", timestamp(st.Atime, s.now)},
		{"Changed", timestamp(st.Ctime, s.now)},
	}
}

const timestampLayout = "2006-01-02 15:04:05 MST"

// timestamp renders a 32-bit Unix time absolutely and relative to now.
func timestamp(sec uint32, now time.Time) string {
	t := time.Unix(int64(sec), 0)
	return fmt.Sprintf("%s (%s)", t.Local().Format(timestampLayout), timeutil.FormatRelative(t, now))
}

func runStat(cmd *cobra.Command, args []string) error {
	rawURL, err := cmdutil.ResolveURL(args[0])
	if err != nil {
		return err
	}

	var resp handlers.StatResponse
	err = cmdutil.WithClient(cmd.Context(), func(ctx context.Context, c *cmdutil.Client) error {
		st, err := c.URLStat(ctx, rawURL)
		if err != nil {
			return err
		}
		resp = handlers.NewStatResponse(rawURL, st)
		return nil
	})
	if err != nil {
		return err
	}
	return cmdutil.PrintOutput(cmd.OutOrStdout(), resp, false, "", statTable{StatResponse: resp, now: time.Now()})
}
