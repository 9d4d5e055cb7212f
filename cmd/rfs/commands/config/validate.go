package config

import (
	"fmt"

	"github.com/marmos91/remotefs/cmd/rfs/cmdutil"
	"github.com/marmos91/remotefs/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the rfs configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  rfs config validate

  # Validate specific config file
  rfs config validate --config /etc/remotefs/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath := cmdutil.Flags.ConfigFile

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
		if !config.DefaultConfigExists() {
			displayPath += " (not found, using defaults)"
		}
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if warnings := collectWarnings(cfg); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Backend:       %s\n", cfg.Backend.Type)
	_, _ = fmt.Fprintf(out, "  Scheme:        %s\n", cfg.Client.Scheme)
	_, _ = fmt.Fprintf(out, "  Max handles:   %d\n", cfg.Client.MaxHandles)
	_, _ = fmt.Fprintf(out, "  Gateway port:  %d\n", cfg.Gateway.Port)
	_, _ = fmt.Fprintf(out, "  Log level:     %s\n", cfg.Logging.Level)
	return nil
}

// collectWarnings reports settings that are valid but probably unintended.
func collectWarnings(cfg *config.Config) []string {
	var warnings []string

	switch cfg.Backend.Type {
	case config.BackendMemory:
		warnings = append(warnings, "memory backend keeps files only for the lifetime of one process")
		if !cfg.Backend.Memory.AutoCreate && len(cfg.Backend.Memory.Shares) == 0 {
			warnings = append(warnings, "memory backend has no shares and auto_create is off, every URL will fail")
		}
	case config.BackendS3:
		if cfg.Backend.S3.AccessKeyID == "" {
			warnings = append(warnings, "s3 access_key_id not set, the AWS default credential chain applies")
		}
	case config.BackendBadger:
		if cfg.Backend.Badger.InMemory {
			warnings = append(warnings, "badger in_memory is set, nothing is persisted")
		}
	}

	if cfg.Client.DefaultPassword != "" {
		warnings = append(warnings, "client.default_password is stored in clear text, consider 'rfs login'")
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.SampleRate == 0 {
		warnings = append(warnings, "telemetry enabled with sample_rate 0, no traces will be exported")
	}
	return warnings
}
