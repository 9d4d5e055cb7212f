package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/remotefs/internal/bytesize"
	"github.com/marmos91/remotefs/pkg/handle"
	"github.com/marmos91/remotefs/pkg/native/badger"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyClientDefaults(&cfg.Client)
	applyBackendDefaults(&cfg.Backend)
	cfg.Gateway.ApplyDefaults()
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	// Default endpoint is localhost:4040 (standard Pyroscope port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyClientDefaults sets URL and session defaults.
// Workgroup is left empty so the session registry can consult $WORKGROUP.
func applyClientDefaults(cfg *ClientConfig) {
	if cfg.Scheme == "" {
		cfg.Scheme = "smb"
	}
	cfg.Scheme = strings.ToLower(cfg.Scheme)

	if cfg.DefaultUser == "" {
		cfg.DefaultUser = "guest"
	}
	if cfg.MaxHandles == 0 {
		cfg.MaxHandles = handle.DefaultCapacity
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 64 * bytesize.KiB
	}
}

// applyBackendDefaults selects the memory backend when none is configured
// and fills the per-backend defaults that are safe to apply to every
// section, active or not.
func applyBackendDefaults(cfg *BackendConfig) {
	if cfg.Type == "" {
		cfg.Type = BackendMemory
	}
	cfg.Type = strings.ToLower(cfg.Type)

	if cfg.Local.DirMode == 0 {
		cfg.Local.DirMode = 0o755
	}

	if cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}
	if cfg.S3.MaxAttempts == 0 {
		cfg.S3.MaxAttempts = 1
	}

	if cfg.Badger.Dir == "" && !cfg.Badger.InMemory {
		cfg.Badger.Dir = filepath.Join(dataDir(), "badger")
	}
	if cfg.Badger.MetricsInterval == 0 {
		cfg.Badger.MetricsInterval = badger.DefaultMetricsInterval
	}
}

// dataDir returns $XDG_DATA_HOME/remotefs, falling back to
// ~/.local/share/remotefs.
func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "remotefs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "remotefs")
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Backend: BackendConfig{
			Type: BackendMemory,
			Memory: MemoryBackendConfig{
				AutoCreate: true,
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
