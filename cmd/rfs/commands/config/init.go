package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/remotefs/cmd/rfs/cmdutil"
	"github.com/marmos91/remotefs/internal/cli/prompt"
	"github.com/marmos91/remotefs/pkg/config"
	"github.com/spf13/cobra"
)

var (
	initForce       bool
	initBackend     string
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Long: `Write a configuration file populated with the default values.

Examples:
  # Default location, memory backend
  rfs config init

  # Local directory backend in a custom file
  rfs config init --backend local --config ./rfs.yaml

  # Choose the backend interactively
  rfs config init -i`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file without asking")
	initCmd.Flags().StringVar(&initBackend, "backend", config.BackendMemory, "Backend type (memory|local|s3|badger)")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Select the backend interactively")
}

var backendOptions = []prompt.SelectOption{
	{Label: "memory", Value: config.BackendMemory, Description: "Volatile in-process tree, useful for trying things out"},
	{Label: "local", Value: config.BackendLocal, Description: "One directory per server below a root directory"},
	{Label: "s3", Value: config.BackendS3, Description: "One bucket per share on S3 or an S3-compatible server"},
	{Label: "badger", Value: config.BackendBadger, Description: "Embedded BadgerDB key-value store"},
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cmdutil.Flags.ConfigFile
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		overwrite, err := prompt.ConfirmWithForce(fmt.Sprintf("%s exists. Overwrite", path), initForce)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		if !overwrite {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	backend := initBackend
	if initInteractive {
		var err error
		backend, err = prompt.Select("Backend", backendOptions)
		if err != nil {
			return err
		}
	}

	cfg, err := defaultConfigFor(backend, filepath.Dir(path))
	if err != nil {
		return err
	}
	if err := config.SaveConfig(cfg, path); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s (backend: %s)\n", path, cfg.Backend.Type)
	return nil
}

// defaultConfigFor returns the default configuration with the given backend
// selected. The local backend gets a root next to the configuration file.
func defaultConfigFor(backend, dir string) (*config.Config, error) {
	cfg := config.GetDefaultConfig()
	cfg.Backend.Type = backend

	switch backend {
	case config.BackendMemory, config.BackendS3, config.BackendBadger:
	case config.BackendLocal:
		cfg.Backend.Local.Root = filepath.Join(dir, "shares")
		cfg.Backend.Local.AutoCreate = true
	default:
		return nil, fmt.Errorf("unknown backend %q, want memory, local, s3 or badger", backend)
	}
	return cfg, nil
}
