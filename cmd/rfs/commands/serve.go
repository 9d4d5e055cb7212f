package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/remotefs/cmd/rfs/cmdutil"
	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/internal/telemetry"
	"github.com/marmos91/remotefs/pkg/config"
	"github.com/marmos91/remotefs/pkg/gateway"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP gateway",
	Long: `Run the HTTP gateway in the foreground.

The gateway exposes every file and directory operation under /v1, health
probes under /health and, when metrics are enabled, Prometheus metrics under
/metrics. Changes to logging.level in the configuration file are applied
without a restart.

Examples:
  # Serve with the default configuration
  rfs serve

  # Serve on another port with debug logging
  RFS_LOGGING_LEVEL=DEBUG rfs serve --port 9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (default: gateway.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Watch(cmdutil.Flags.ConfigFile, func(next *config.Config) {
		if cmdutil.Flags.Verbose {
			return
		}
		logger.SetLevel(next.Logging.Level)
		logger.Info("Log level updated", "level", next.Logging.Level)
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmdutil.Flags.Verbose {
		cfg.Logging.Level = "DEBUG"
	}
	if err := cmdutil.InitLogger(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "remotefs",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("Telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "remotefs",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("Profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	d, shutdown, err := config.InitializeDispatcher(cfg)
	if err != nil {
		return err
	}

	gwCfg := cfg.Gateway
	if servePort != 0 {
		gwCfg.Port = servePort
	}
	gwCfg.BufferSize = cfg.Client.BufferSize
	server := gateway.NewServer(gwCfg, d)

	logger.Info("Backend ready", logger.KeyDriver, cfg.Backend.Type, "scheme", d.Scheme())
	serveErr := server.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		logger.Error("Dispatcher shutdown error", logger.Err(err))
		if serveErr == nil {
			serveErr = err
		}
	}
	return serveErr
}
