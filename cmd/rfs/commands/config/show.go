package config

import (
	"github.com/marmos91/remotefs/cmd/rfs/cmdutil"
	"github.com/marmos91/remotefs/internal/cli/output"
	"github.com/marmos91/remotefs/pkg/config"
	"github.com/spf13/cobra"
)

const redacted = "********"

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and RFS_ environment overrides are
applied. Passwords and secret keys are masked.

Examples:
  rfs config show
  RFS_BACKEND_TYPE=local rfs config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(cmdutil.Flags.ConfigFile)
	if err != nil {
		return err
	}
	cfg = redactSecrets(cfg)

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	if format == output.FormatJSON {
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	}
	return output.PrintYAML(cmd.OutOrStdout(), cfg)
}

// redactSecrets returns a copy of cfg with every secret masked.
func redactSecrets(cfg *config.Config) *config.Config {
	c := *cfg
	if c.Client.DefaultPassword != "" {
		c.Client.DefaultPassword = redacted
	}
	if c.Backend.S3.SecretAccessKey != "" {
		c.Backend.S3.SecretAccessKey = redacted
	}

	accounts := make([]config.AccountConfig, len(c.Backend.Memory.Accounts))
	for i, a := range c.Backend.Memory.Accounts {
		if a.Password != "" {
			a.Password = redacted
		}
		accounts[i] = a
	}
	c.Backend.Memory.Accounts = accounts
	return &c
}
