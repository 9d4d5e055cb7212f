package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("hostshare", func(fl validator.FieldLevel) bool {
			host, share, ok := strings.Cut(fl.Field().String(), "/")
			return ok && host != "" && share != "" && !strings.Contains(share, "/")
		})
	})
	return validate
}

// Validate checks the configuration for errors.
//
// Struct tags cover individual fields; cross-field rules and the active
// backend section are checked here. All problems are reported together.
func Validate(cfg *Config) error {
	var result *multierror.Error

	if err := getValidator().Struct(cfg); err != nil {
		result = multierror.Append(result, err)
	}

	if err := validateBackend(&cfg.Backend); err != nil {
		result = multierror.Append(result, err)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		result = multierror.Append(result, fmt.Errorf("telemetry.endpoint is required when telemetry is enabled"))
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		result = multierror.Append(result, fmt.Errorf("telemetry.profiling.endpoint is required when profiling is enabled"))
	}

	return result.ErrorOrNil()
}

// validateBackend validates the section selected by Type.
func validateBackend(cfg *BackendConfig) error {
	v := getValidator()

	var err error
	switch cfg.Type {
	case BackendMemory:
		err = v.Struct(&cfg.Memory)
	case BackendLocal:
		err = v.Struct(&cfg.Local)
	case BackendS3:
		err = v.Struct(&cfg.S3)
		if err == nil && (cfg.S3.AccessKeyID == "") != (cfg.S3.SecretAccessKey == "") {
			err = fmt.Errorf("access_key_id and secret_access_key must be set together")
		}
	case BackendBadger:
		err = v.Struct(&cfg.Badger)
	default:
		// Reported by the struct tag on Type.
		return nil
	}
	if err != nil {
		return fmt.Errorf("backend.%s: %w", cfg.Type, err)
	}
	return nil
}
