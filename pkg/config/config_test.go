package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/remotefs/internal/bytesize"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences (e.g. \U -> Unicode escape), causing parse errors.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "info"

client:
  scheme: smb
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default output 'stderr', got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Backend.Type != BackendMemory {
		t.Errorf("Expected default backend 'memory', got %q", cfg.Backend.Type)
	}
	if cfg.Gateway.Port != 8080 {
		t.Errorf("Expected default gateway port 8080, got %d", cfg.Gateway.Port)
	}
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected defaults without a config file, got error: %v", err)
	}
	if cfg.Client.Scheme != "smb" {
		t.Errorf("Expected default scheme 'smb', got %q", cfg.Client.Scheme)
	}
}

func TestMustLoad_MissingExplicitFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing explicit config file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[backend]
type = "local"

[backend.local]
root = "/srv/remotefs"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Backend.Local.Root != "/srv/remotefs" {
		t.Errorf("Expected local root '/srv/remotefs', got %q", cfg.Backend.Local.Root)
	}
}

func TestLoad_CustomTypes(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
client:
  buffer_size: 1Mi
gateway:
  read_timeout: 5s
  max_upload_size: 10Mi
backend:
  type: local
  local:
    root: "`+yamlSafePath(t.TempDir())+`"
    dir_mode: "0700"
shutdown_timeout: 2m
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Client.BufferSize != bytesize.MiB {
		t.Errorf("Expected buffer size 1Mi, got %v", cfg.Client.BufferSize)
	}
	if cfg.Gateway.ReadTimeout != 5*time.Second {
		t.Errorf("Expected read timeout 5s, got %v", cfg.Gateway.ReadTimeout)
	}
	if cfg.Gateway.MaxUploadSize != 10*bytesize.MiB {
		t.Errorf("Expected upload limit 10Mi, got %v", cfg.Gateway.MaxUploadSize)
	}
	if cfg.Backend.Local.DirMode != 0o700 {
		t.Errorf("Expected dir mode 0700, got %o", cfg.Backend.Local.DirMode)
	}
	if cfg.ShutdownTimeout != 2*time.Minute {
		t.Errorf("Expected shutdown timeout 2m, got %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_InvalidFileMode(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
backend:
  type: local
  local:
    root: /tmp
    dir_mode: "rwx"
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid dir_mode")
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Client.DefaultUser != "guest" {
		t.Errorf("Expected default user 'guest', got %q", cfg.Client.DefaultUser)
	}
	if cfg.Client.BufferSize != 64*bytesize.KiB {
		t.Errorf("Expected default buffer 64Ki, got %v", cfg.Client.BufferSize)
	}
	if !cfg.Backend.Memory.AutoCreate {
		t.Error("Expected the default memory backend to auto-create shares")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	dir := GetConfigDir()
	if dir != filepath.Join("/xdg", "remotefs") {
		t.Errorf("Expected XDG config dir, got %q", dir)
	}
}

func TestDefaultConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if DefaultConfigExists() {
		t.Fatal("Expected no default config in an empty XDG_CONFIG_HOME")
	}
	if err := SaveConfig(GetDefaultConfig(), GetDefaultConfigPath()); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	if !DefaultConfigExists() {
		t.Error("Expected default config to exist after SaveConfig")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Client.Scheme = "cifs"
	cfg.Gateway.Port = 9000
	cfg.Client.DefaultPassword = "secret"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Saved config missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %o", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload saved config: %v", err)
	}
	if loaded.Client.Scheme != "cifs" {
		t.Errorf("Expected scheme 'cifs', got %q", loaded.Client.Scheme)
	}
	if loaded.Gateway.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", loaded.Gateway.Port)
	}
	if loaded.Client.BufferSize != cfg.Client.BufferSize {
		t.Errorf("Expected buffer size %v, got %v", cfg.Client.BufferSize, loaded.Client.BufferSize)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("RFS_LOGGING_LEVEL", "ERROR")
	t.Setenv("RFS_GATEWAY_PORT", "9090")
	t.Setenv("RFS_CLIENT_DEFAULT_USER", "alice")

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"
gateway:
  port: 8080
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Gateway.Port != 9090 {
		t.Errorf("Expected port 9090 from env var, got %d", cfg.Gateway.Port)
	}
	// Not mentioned in the file at all.
	if cfg.Client.DefaultUser != "alice" {
		t.Errorf("Expected default user 'alice' from env var, got %q", cfg.Client.DefaultUser)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", "logging:\n  level: INFO\n")

	changes := make(chan *Config, 4)
	cfg, err := Watch(configPath, func(c *Config) { changes <- c })
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if cfg.Logging.Level != "INFO" {
		t.Fatalf("Expected initial level 'INFO', got %q", cfg.Logging.Level)
	}

	if err := os.WriteFile(configPath, []byte("logging:\n  level: DEBUG\n"), 0644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Logging.Level == "DEBUG" {
				return
			}
		case <-deadline:
			t.Fatal("Timed out waiting for configuration reload")
		}
	}
}
