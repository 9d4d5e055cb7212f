// Package config implements the "rfs config" command group.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for configuration management.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Create, inspect and validate the rfs configuration file.

The default location is $XDG_CONFIG_HOME/remotefs/config.yaml. Every key can
be overridden with an RFS_ environment variable, for example
RFS_BACKEND_TYPE=local or RFS_LOGGING_LEVEL=DEBUG.`,
}

func init() {
	Cmd.AddCommand(initCmd)
	Cmd.AddCommand(schemaCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(outputCmd)
}
