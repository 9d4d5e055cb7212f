// Package s3 implements a native driver over Amazon S3 or any S3-compatible
// object store.
//
// Mapping:
//   - share: bucket
//   - share-relative path: object key (below an optional KeyPrefix)
//   - directory: a "/" delimited prefix, materialized by an empty marker
//     object "<key>/" when created with Mkdir
//
// Files are read with ranged GetObject calls. Writable files are buffered in
// memory and uploaded with a single PutObject when closed. Permission bits
// are kept in the "mode" object metadata; objects without it report 0644
// (files) or 0755 (directories).
//
// Session credentials are used as the access key and secret when the URL
// carries both; otherwise the driver's configured credentials (or the AWS
// default chain) apply.
package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/remotefs/pkg/metrics"
	"github.com/marmos91/remotefs/pkg/native"
)

// DriverName is reported by Driver.Name.
const DriverName = "s3"

// Config configures a Driver.
type Config struct {
	// Region is the AWS region. Default "us-east-1".
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the S3 endpoint (Localstack, MinIO, ...).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// AccessKeyID and SecretAccessKey are used when a session supplies no
	// credentials of its own. Both empty selects the AWS default chain.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`

	// ForcePathStyle addresses buckets as path segments instead of
	// subdomains. Required by most S3-compatible servers.
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style"`

	// KeyPrefix is prepended to every object key.
	// Example: "remotefs/" maps smb://host/bucket/a to key "remotefs/a".
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`

	// MaxAttempts bounds SDK-level attempts per API call. Default 1, which
	// disables retries.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts" validate:"gte=0"`

	// Metrics is an optional metrics collector.
	Metrics metrics.S3Metrics `mapstructure:"-" yaml:"-"`
}

// Driver is a native.Driver backed by S3.
type Driver struct {
	cfg      Config
	contexts atomic.Int64
}

var _ native.Driver = (*Driver)(nil)

// NewDriver creates a driver. No request is made until a context is
// initialized.
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxAttempts < 0 {
		return nil, fmt.Errorf("s3: max attempts must be positive, got %d", cfg.MaxAttempts)
	}
	if cfg.KeyPrefix != "" && !strings.HasSuffix(cfg.KeyPrefix, "/") {
		cfg.KeyPrefix += "/"
	}
	return &Driver{cfg: cfg}, nil
}

// Name implements native.Driver.
func (d *Driver) Name() string {
	return DriverName
}

// LiveContexts returns the number of contexts that have not been freed.
func (d *Driver) LiveContexts() int {
	return int(d.contexts.Load())
}

// NewContext implements native.Driver.
func (d *Driver) NewContext(opts native.ContextOptions) (native.Context, error) {
	if opts.Server == "" {
		return nil, fmt.Errorf("s3: empty server name: %w", syscall.EINVAL)
	}
	d.contexts.Add(1)
	return &Context{driver: d, opts: opts}, nil
}

// NewClientFromConfig creates an S3 client from configuration parameters.
// Empty keys select the AWS default credential chain.
func NewClientFromConfig(
	ctx context.Context,
	endpoint,
	region,
	accessKeyID,
	secretAccessKey string,
	forcePathStyle bool,
	maxAttempts int,
) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if accessKeyID != "" || secretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = forcePathStyle
		if maxAttempts > 0 {
			o.RetryMaxAttempts = maxAttempts
		}
	})

	return client, nil
}

// credentialsFor picks the keys a context authenticates with.
func (d *Driver) credentialsFor(creds native.Credentials) (string, string) {
	if creds.Username != "" && creds.Password != "" && creds.Username != "guest" {
		return creds.Username, creds.Password
	}
	return d.cfg.AccessKeyID, d.cfg.SecretAccessKey
}

var errNotConnected = errors.New("s3: context is not initialized")
