package config

import (
	"fmt"
	"strings"

	"github.com/marmos91/remotefs/pkg/metrics"
	"github.com/marmos91/remotefs/pkg/native"
	"github.com/marmos91/remotefs/pkg/native/badger"
	"github.com/marmos91/remotefs/pkg/native/local"
	"github.com/marmos91/remotefs/pkg/native/memory"
	"github.com/marmos91/remotefs/pkg/native/s3"
)

// Backend types.
const (
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendS3     = "s3"
	BackendBadger = "badger"
)

// BackendConfig selects the native driver sessions are opened against.
// Only the section named by Type is validated and used.
type BackendConfig struct {
	// Type selects the driver: memory, local, s3 or badger
	// Default: memory
	Type string `mapstructure:"type" validate:"required,oneof=memory local s3 badger" yaml:"type"`

	Memory MemoryBackendConfig `mapstructure:"memory" validate:"-" yaml:"memory"`
	Local  local.Config        `mapstructure:"local" validate:"-" yaml:"local"`
	S3     s3.Config           `mapstructure:"s3" validate:"-" yaml:"s3"`
	Badger badger.Config       `mapstructure:"badger" validate:"-" yaml:"badger"`
}

// MemoryBackendConfig configures the in-memory driver.
type MemoryBackendConfig struct {
	// AutoCreate makes unknown servers and shares appear on first use
	AutoCreate bool `mapstructure:"auto_create" yaml:"auto_create"`

	// OptimisticModes reports every entry as readable and executable
	OptimisticModes bool `mapstructure:"optimistic_modes" yaml:"optimistic_modes"`

	// Shares are "host/share" pairs created at startup
	Shares []string `mapstructure:"shares" validate:"dive,hostshare" yaml:"shares,omitempty"`

	// Accounts restrict a host to the listed credentials
	Accounts []AccountConfig `mapstructure:"accounts" validate:"dive" yaml:"accounts,omitempty"`
}

// AccountConfig is one credential accepted by a memory backend host.
type AccountConfig struct {
	Host     string `mapstructure:"host" validate:"required" yaml:"host"`
	User     string `mapstructure:"user" validate:"required" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
}

// CreateDriver builds the driver selected by cfg. The returned closer
// releases driver resources and must be called after every session using
// the driver has been finalized.
func CreateDriver(cfg BackendConfig) (native.Driver, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(cfg.Type) {
	case BackendMemory, "":
		return createMemoryDriver(cfg.Memory), noop, nil

	case BackendLocal:
		d, err := local.NewDriver(cfg.Local)
		if err != nil {
			return nil, nil, err
		}
		return d, noop, nil

	case BackendS3:
		s3cfg := cfg.S3
		s3cfg.Metrics = metrics.NewS3Metrics()
		d, err := s3.NewDriver(s3cfg)
		if err != nil {
			return nil, nil, err
		}
		return d, noop, nil

	case BackendBadger:
		bcfg := cfg.Badger
		bcfg.Metrics = metrics.NewBadgerMetrics()
		d, err := badger.NewDriver(bcfg)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend type: %q", cfg.Type)
	}
}

func createMemoryDriver(cfg MemoryBackendConfig) *memory.Driver {
	d := memory.NewDriver(memory.Config{
		AutoCreate:      cfg.AutoCreate,
		OptimisticModes: cfg.OptimisticModes,
	})
	for _, hs := range cfg.Shares {
		host, share, _ := strings.Cut(hs, "/")
		d.AddShare(host, share)
	}
	for _, a := range cfg.Accounts {
		d.AddAccount(a.Host, a.User, a.Password)
	}
	return d
}
