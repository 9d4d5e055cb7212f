package telemetry

import "fmt"

// Config describes the OTLP trace exporter.
type Config struct {
	Enabled bool

	// ServiceName and ServiceVersion become resource attributes of every span.
	ServiceName    string
	ServiceVersion string

	// Endpoint is the collector's gRPC host:port, e.g. "localhost:4317".
	Endpoint string

	// Insecure dials the collector without TLS.
	Insecure bool

	// SampleRate is the fraction of root spans kept, from 0 to 1.
	SampleRate float64
}

// DefaultConfig returns a disabled configuration pointing at a local
// collector.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "remotefs",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

// Validate reports settings Init cannot work with. A disabled
// configuration is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("telemetry endpoint is required when tracing is enabled")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("telemetry sample rate %v out of range [0, 1]", c.SampleRate)
	}
	if c.ServiceName == "" {
		return fmt.Errorf("telemetry service name is required")
	}
	return nil
}
