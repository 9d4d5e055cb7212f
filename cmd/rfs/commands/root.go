// Package commands implements the rfs command-line client.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/remotefs/cmd/rfs/cmdutil"
	configcmd "github.com/marmos91/remotefs/cmd/rfs/commands/config"
	fserrors "github.com/marmos91/remotefs/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rfs",
	Short: "remotefs - file access over smb:// URLs",
	Long: `rfs reads, writes and manages files on remote shares addressed by URL:

  smb://[user[:password]@]host[:port]/share/path

The backend that serves the URLs (memory, local directory, S3 or BadgerDB)
is chosen in the configuration file. "rfs serve" exposes the same
operations over HTTP.

Use "rfs [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Sync flags to cmdutil.Flags for subcommands
		cmdutil.Flags.ConfigFile, _ = cmd.Flags().GetString("config")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.AskPassword, _ = cmd.Flags().GetBool("ask-password")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, which stops transfers and shuts "serve" down gracefully.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: $XDG_CONFIG_HOME/remotefs/config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("ask-password", false, "Prompt for the password of URLs that carry none")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(rmdirCmd)
	rootCmd.AddCommand(chmodCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Exit codes distinguish the broad failure classes for scripts.
const (
	ExitError        = 1
	ExitNotFound     = 2
	ExitPermission   = 3
	ExitConnection   = 4
	ExitInvalidUsage = 64
)

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch fserrors.CodeOf(err) {
	case fserrors.ErrNotFound:
		return ExitNotFound
	case fserrors.ErrPermissionDenied:
		return ExitPermission
	case fserrors.ErrConnectionFailed:
		return ExitConnection
	case fserrors.ErrInvalidArgument:
		return ExitInvalidUsage
	default:
		return ExitError
	}
}
