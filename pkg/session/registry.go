package session

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/internal/telemetry"
	fserrors "github.com/marmos91/remotefs/pkg/errors"
	"github.com/marmos91/remotefs/pkg/metrics"
	"github.com/marmos91/remotefs/pkg/native"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultWorkgroup is used when neither Options nor the WORKGROUP
	// environment variable name one.
	DefaultWorkgroup = "WORKGROUP"

	// DefaultUser is offered when the URL carries no user.
	DefaultUser = "guest"

	// WorkgroupEnv overrides the default workgroup.
	WorkgroupEnv = "WORKGROUP"
)

// Options configure a Registry.
type Options struct {
	// Workgroup overrides the WORKGROUP environment variable.
	Workgroup string

	// DefaultUser is offered when a key has no user. Defaults to "guest".
	DefaultUser string

	// DefaultPassword is offered when a key has no password.
	DefaultPassword string

	// Metrics is optional.
	Metrics metrics.ClientMetrics
}

// Registry holds at most one live Session per Key.
type Registry struct {
	driver    native.Driver
	workgroup string
	user      string
	password  string
	metrics   metrics.ClientMetrics

	mu       sync.Mutex
	sessions map[Key]*Session

	creating singleflight.Group
}

// NewRegistry creates an empty registry that opens sessions through driver.
// The workgroup is resolved once here.
func NewRegistry(driver native.Driver, opts Options) *Registry {
	workgroup := opts.Workgroup
	if workgroup == "" {
		workgroup = os.Getenv(WorkgroupEnv)
	}
	if workgroup == "" {
		workgroup = DefaultWorkgroup
	}

	user := opts.DefaultUser
	if user == "" {
		user = DefaultUser
	}

	return &Registry{
		driver:    driver,
		workgroup: workgroup,
		user:      user,
		password:  opts.DefaultPassword,
		metrics:   opts.Metrics,
		sessions:  make(map[Key]*Session),
	}
}

// Driver returns the native driver sessions are created with.
func (r *Registry) Driver() native.Driver {
	return r.driver
}

// Workgroup returns the workgroup offered to every server.
func (r *Registry) Workgroup() string {
	return r.workgroup
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sessions returns a snapshot of the registered sessions ordered by
// creation time.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].createdAt.Before(out[j].createdAt) })
	return out
}

// GetOrCreate returns the session for key, creating and initializing it on
// first use. The returned session carries a reference owned by the caller,
// who must Release it.
//
// Initialization failures are reported as ConnectionFailed. The failed
// session is discarded; the next call tries again from scratch.
func (r *Registry) GetOrCreate(ctx context.Context, key Key) (*Session, error) {
	key.Host = NewKey("", key.Host, "", "").Host

	for {
		if s := r.lookupAcquire(key); s != nil {
			return s, nil
		}

		_, err, _ := r.creating.Do(key.flightKey(), func() (any, error) {
			if s := r.lookup(key); s != nil {
				return s, nil
			}
			s, err := r.create(ctx, key)
			if err != nil {
				return nil, err
			}

			r.mu.Lock()
			r.sessions[key] = s
			n := len(r.sessions)
			r.mu.Unlock()

			metrics.SetSessions(r.metrics, n)
			return s, nil
		})
		if err != nil {
			return nil, err
		}
		// The new session is registered; loop to take a reference under the
		// lock. A concurrent Remove between the two steps sends us round again.
	}
}

func (r *Registry) lookup(key Key) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[key]
}

func (r *Registry) lookupAcquire(key Key) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return nil
	}
	if err := s.Acquire(); err != nil {
		return nil
	}
	return s
}

// create allocates and initializes a native context for key.
func (r *Registry) create(ctx context.Context, key Key) (*Session, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanSessionCreate)
	defer span.End()
	span.SetAttributes(telemetry.Host(key.Host), telemetry.Driver(r.driver.Name()))

	start := time.Now()
	nctx, err := r.driver.NewContext(native.ContextOptions{
		Protocol: key.Protocol,
		Server:   key.Host,
		Auth:     r.authFunc(key),
	})
	if err != nil {
		return nil, r.failed(ctx, key, err)
	}

	if err := nctx.Init(ctx); err != nil {
		if ferr := nctx.Free(); ferr != nil {
			logger.WarnCtx(ctx, "Failed to free native context after init failure",
				logger.KeyHost, key.Host, logger.Err(ferr))
		}
		return nil, r.failed(ctx, key, err)
	}

	s := &Session{
		id:        uuid.NewString(),
		key:       key,
		driver:    r.driver.Name(),
		nctx:      nctx,
		createdAt: time.Now(),
		refs:      1,
	}

	span.SetAttributes(telemetry.SessionID(s.id))
	logger.InfoCtx(ctx, "Session created",
		logger.KeySessionID, s.id,
		logger.KeyHost, key.Host,
		logger.KeyUser, key.User,
		logger.KeyFingerprint, key.Fingerprint(),
		logger.KeyDriver, s.driver,
		logger.DurationMs(logger.Duration(start)))

	return s, nil
}

func (r *Registry) failed(ctx context.Context, key Key, cause error) error {
	err := fserrors.NewConnectionFailedError("connect", key.String(), cause)
	telemetry.RecordError(ctx, err)
	metrics.RecordSessionFailure(r.metrics, r.driver.Name())
	logger.WarnCtx(ctx, "Session creation failed",
		logger.KeyHost, key.Host,
		logger.KeyUser, key.User,
		logger.KeyDriver, r.driver.Name(),
		logger.Err(cause))
	return err
}

// authFunc returns the credential callback bound to key. Empty users and
// passwords fall back to the registry defaults.
func (r *Registry) authFunc(key Key) native.AuthFunc {
	creds := native.Credentials{
		Workgroup: r.workgroup,
		Username:  key.User,
		Password:  key.Password,
	}
	if creds.Username == "" {
		creds.Username = r.user
	}
	if creds.Password == "" {
		creds.Password = r.password
	}
	return func(server, share string) native.Credentials {
		logger.Debug("Supplying credentials",
			logger.KeyHost, server,
			logger.KeyShare, share,
			logger.KeyUser, creds.Username,
			logger.KeyWorkgroup, creds.Workgroup)
		return creds
	}
}

// Remove unregisters s and drops the registry's reference. Handles still
// holding s keep it alive until they release it.
func (r *Registry) Remove(s *Session) error {
	r.mu.Lock()
	cur, ok := r.sessions[s.key]
	registered := ok && cur == s
	if registered {
		delete(r.sessions, s.key)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if !registered {
		return nil
	}
	metrics.SetSessions(r.metrics, n)
	return s.Release()
}

// Finalize unregisters every session and drops the registry's references.
// It is idempotent and safe on an empty registry. Errors from freeing native
// contexts are aggregated.
func (r *Registry) Finalize() error {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[Key]*Session)
	r.mu.Unlock()

	if len(all) == 0 {
		return nil
	}

	var result *multierror.Error
	for _, s := range all {
		if err := s.Release(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	metrics.SetSessions(r.metrics, 0)
	logger.Debug("Registry finalized", logger.KeySessions, len(all))

	return result.ErrorOrNil()
}
