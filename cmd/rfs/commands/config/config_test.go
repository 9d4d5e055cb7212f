package config

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/marmos91/remotefs/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigFor(t *testing.T) {
	cfg, err := defaultConfigFor(config.BackendLocal, "/etc/remotefs")
	require.NoError(t, err)
	assert.Equal(t, config.BackendLocal, cfg.Backend.Type)
	assert.Equal(t, filepath.Join("/etc/remotefs", "shares"), cfg.Backend.Local.Root)
	assert.True(t, cfg.Backend.Local.AutoCreate)
	require.NoError(t, config.Validate(cfg))

	cfg, err = defaultConfigFor(config.BackendMemory, "")
	require.NoError(t, err)
	assert.True(t, cfg.Backend.Memory.AutoCreate)

	_, err = defaultConfigFor("ftp", "")
	assert.Error(t, err)
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := defaultConfigFor(config.BackendLocal, filepath.Dir(path))
	require.NoError(t, err)
	require.NoError(t, config.SaveConfig(cfg, path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Backend.Local.Root, loaded.Backend.Local.Root)
	assert.Equal(t, cfg.Client.BufferSize, loaded.Client.BufferSize)
	assert.Equal(t, cfg.ShutdownTimeout, loaded.ShutdownTimeout)
}

func TestRedactSecrets(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Client.DefaultPassword = "pw"
	cfg.Backend.S3.SecretAccessKey = "key"
	cfg.Backend.Memory.Accounts = []config.AccountConfig{
		{Host: "h", User: "u", Password: "secret"},
		{Host: "h", User: "anon"},
	}

	got := redactSecrets(cfg)
	assert.Equal(t, redacted, got.Client.DefaultPassword)
	assert.Equal(t, redacted, got.Backend.S3.SecretAccessKey)
	assert.Equal(t, redacted, got.Backend.Memory.Accounts[0].Password)
	assert.Empty(t, got.Backend.Memory.Accounts[1].Password)

	// The input is untouched.
	assert.Equal(t, "pw", cfg.Client.DefaultPassword)
	assert.Equal(t, "secret", cfg.Backend.Memory.Accounts[0].Password)
}

func TestCollectWarnings(t *testing.T) {
	cfg := config.GetDefaultConfig()
	assert.Contains(t, collectWarnings(cfg), "memory backend keeps files only for the lifetime of one process")

	cfg.Backend.Type = config.BackendS3
	cfg.Client.DefaultPassword = "pw"
	warnings := collectWarnings(cfg)
	assert.Len(t, warnings, 2)

	cfg.Backend.S3.AccessKeyID = "id"
	cfg.Client.DefaultPassword = ""
	assert.Empty(t, collectWarnings(cfg))
}

func TestSchema(t *testing.T) {
	s := Schema()
	assert.Equal(t, "remotefs Configuration", s.Title)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var doc struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{"logging", "client", "backend", "gateway", "shutdown_timeout"} {
		assert.Contains(t, doc.Properties, key)
	}
}
