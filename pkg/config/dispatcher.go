package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/dispatcher"
	"github.com/marmos91/remotefs/pkg/metrics"
	_ "github.com/marmos91/remotefs/pkg/metrics/prometheus" // registers the Prometheus constructors
	"github.com/marmos91/remotefs/pkg/session"
)

// InitializeDispatcher builds the backend driver, the session registry and
// the dispatcher described by cfg.
//
// When cfg.Metrics.Enabled is set the process-wide Prometheus registry is
// initialized first so every component picks up its collectors.
//
// The returned shutdown function closes every open handle, finalizes the
// sessions and then releases the driver.
func InitializeDispatcher(cfg *Config) (*dispatcher.Dispatcher, func(context.Context) error, error) {
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	driver, closeDriver, err := CreateDriver(cfg.Backend)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s backend: %w", cfg.Backend.Type, err)
	}

	clientMetrics := metrics.NewClientMetrics()

	registry := session.NewRegistry(driver, session.Options{
		Workgroup:       cfg.Client.Workgroup,
		DefaultUser:     cfg.Client.DefaultUser,
		DefaultPassword: cfg.Client.DefaultPassword,
		Metrics:         clientMetrics,
	})

	d := dispatcher.New(registry, dispatcher.Options{
		Scheme:     cfg.Client.Scheme,
		MaxHandles: cfg.Client.MaxHandles,
		Metrics:    clientMetrics,
	})

	logger.Debug("Dispatcher initialized",
		logger.KeyDriver, driver.Name(),
		"scheme", cfg.Client.Scheme,
		"max_handles", cfg.Client.MaxHandles,
		"metrics", cfg.Metrics.Enabled)

	shutdown := func(ctx context.Context) error {
		var result *multierror.Error
		if err := d.Shutdown(ctx); err != nil {
			result = multierror.Append(result, err)
		}
		if err := closeDriver(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close %s backend: %w", driver.Name(), err))
		}
		return result.ErrorOrNil()
	}
	return d, shutdown, nil
}
