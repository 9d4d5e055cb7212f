// Package cmdutil provides shared utilities for rfs commands.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/marmos91/remotefs/internal/cli/credentials"
	"github.com/marmos91/remotefs/internal/cli/output"
	"github.com/marmos91/remotefs/internal/cli/prompt"
	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/config"
	"github.com/marmos91/remotefs/pkg/dispatcher"
	"github.com/marmos91/remotefs/pkg/smburl"
	"github.com/marmos91/remotefs/pkg/transfer"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigFile  string
	Output      string
	AskPassword bool
	NoColor     bool
	Verbose     bool
}

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// LoadConfig loads the configuration named by --config and initializes the
// logger from it. --verbose forces DEBUG logging.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.MustLoad(Flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	if Flags.Verbose {
		cfg.Logging.Level = "DEBUG"
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Client is a dispatcher built from the loaded configuration.
type Client struct {
	*dispatcher.Dispatcher
	Config *config.Config
}

// TransferOptions returns transfer options using bufferSize, or
// client.buffer_size from the configuration when bufferSize is zero.
func (c *Client) TransferOptions(bufferSize int) transfer.Options {
	if bufferSize <= 0 {
		bufferSize = c.Config.Client.BufferSize.Int()
	}
	return transfer.Options{BufferSize: bufferSize}
}

// WithClient loads the configuration, builds a dispatcher and runs fn with
// it. The dispatcher is shut down afterwards, closing anything fn left open.
func WithClient(ctx context.Context, fn func(ctx context.Context, c *Client) error) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	d, shutdown, err := config.InitializeDispatcher(cfg)
	if err != nil {
		return err
	}

	var result *multierror.Error
	if err := fn(ctx, &Client{Dispatcher: d, Config: cfg}); err != nil {
		result = multierror.Append(result, err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		logger.Warn("Shutdown error", logger.Err(err))
		result = multierror.Append(result, err)
	}

	if result == nil {
		return nil
	}
	if len(result.Errors) == 1 {
		return result.Errors[0]
	}
	return result
}

// passwordPrompt asks at most once per user and host within a process.
var passwordPrompt = struct {
	sync.Mutex
	cache map[string]string
	ask   func(label string) (string, error)
}{
	cache: make(map[string]string),
	ask:   prompt.Password,
}

// ResolveURL fills in credentials for rawURL.
//
// A URL without a user gets the credential stored by "rfs login" for its
// host. With --ask-password, a URL still lacking a password gets one typed
// by the user.
func ResolveURL(rawURL string) (string, error) {
	store, err := credentials.NewStore()
	if err != nil {
		return "", fmt.Errorf("failed to initialize credential store: %w", err)
	}
	resolved := store.Apply(rawURL)

	if !Flags.AskPassword {
		return resolved, nil
	}
	c := smburl.Parse(resolved)
	if c.IsLocal() || c.Password != "" {
		return resolved, nil
	}

	who := c.Host
	if c.User != "" {
		who = c.User + "@" + c.Host
	}

	passwordPrompt.Lock()
	defer passwordPrompt.Unlock()
	password, ok := passwordPrompt.cache[who]
	if !ok {
		password, err = passwordPrompt.ask(fmt.Sprintf("Password for %s", who))
		if err != nil {
			return "", err
		}
		passwordPrompt.cache[who] = password
	}
	return c.WithPassword(password).Raw(), nil
}

// GetOutputFormatParsed returns the output format. Without --output the
// preference saved in the credential store applies, then table.
func GetOutputFormatParsed() (output.Format, error) {
	if Flags.Output != "" {
		return output.ParseFormat(Flags.Output)
	}
	if store, err := credentials.NewStore(); err == nil {
		return output.ParseFormat(store.GetPreferences().DefaultOutput)
	}
	return output.FormatTable, nil
}

// NewPrinter returns a printer for w in the selected output format.
func NewPrinter(w io.Writer) (*output.Printer, error) {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return nil, err
	}
	p := output.NewPrinter(w, format)
	if Flags.NoColor {
		p.SetColor(false)
	}
	return p, nil
}

// PrintOutput prints data in the selected format. In table format emptyMsg
// is shown instead of an empty table.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	p, err := NewPrinter(w)
	if err != nil {
		return err
	}
	if p.Format() != output.FormatTable {
		return p.Print(data)
	}
	if isEmpty {
		p.Println(emptyMsg)
		return nil
	}
	return p.Print(tableRenderer)
}

// PrintResourceWithSuccess prints successMsg in table format and the
// resource in JSON or YAML.
func PrintResourceWithSuccess(w io.Writer, data any, successMsg string) error {
	p, err := NewPrinter(w)
	if err != nil {
		return err
	}
	return p.Result(successMsg, data)
}

// RunWithConfirmation prompts for confirmation (unless force is true) and
// runs fn. Declining is not an error.
func RunWithConfirmation(w io.Writer, question string, force bool, fn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(question, force)
	if err != nil {
		if prompt.IsAborted(err) {
			_, _ = fmt.Fprintln(w, "\nAborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		_, _ = fmt.Fprintln(w, "Aborted.")
		return nil
	}
	return fn()
}

// EmptyOr returns the value if not empty, otherwise returns the fallback.
// Useful for table display where empty fields should show "-".
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// Redact renders rawURL for display with its password hidden.
func Redact(rawURL string) string {
	return smburl.Parse(rawURL).String()
}
