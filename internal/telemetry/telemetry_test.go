package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "remotefs", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
	assert.NotNil(t, Tracer())
}

func TestNoopSpans(t *testing.T) {
	ctx, span := StartOperation(context.Background(), "open", Host("server"), Share("share"), Handle(1))
	require.NotNil(t, span)

	require.NotPanics(t, func() {
		SetAttributes(ctx, BytesRead(10), EOF(false), Mode(0o644))
		AddEvent(ctx, "probe")
		RecordError(ctx, errors.New("boom"))
		RecordError(ctx, nil)
	})
	span.End()

	assert.Empty(t, TraceID(ctx))
	assert.Empty(t, SpanID(ctx))
	assert.Equal(t, "remotefs.url_stat", OperationSpanName("url_stat"))
}

func TestProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(ProfilingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown())
	assert.False(t, IsProfilingEnabled())
}

func TestParseProfileType(t *testing.T) {
	for _, name := range ProfileTypeNames() {
		_, err := parseProfileType(name)
		assert.NoError(t, err, name)
	}

	pt, err := parseProfileType(" CPU ")
	require.NoError(t, err)
	assert.EqualValues(t, "cpu", pt)

	_, err = parseProfileType("heap")
	assert.ErrorContains(t, err, "unknown profile type")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"disabled ignores fields", func(c *Config) { c.Endpoint = "" }, ""},
		{"enabled default", func(c *Config) { c.Enabled = true }, ""},
		{"missing endpoint", func(c *Config) { c.Enabled, c.Endpoint = true, "" }, "endpoint"},
		{"rate above one", func(c *Config) { c.Enabled, c.SampleRate = true, 1.5 }, "sample rate"},
		{"negative rate", func(c *Config) { c.Enabled, c.SampleRate = true, -0.1 }, "sample rate"},
		{"missing service", func(c *Config) { c.Enabled, c.ServiceName = true, "" }, "service name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestInitRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = ""

	_, err := Init(context.Background(), cfg)
	assert.ErrorContains(t, err, "endpoint")
	assert.False(t, IsEnabled())
}
