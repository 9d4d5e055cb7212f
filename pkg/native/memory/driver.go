// Package memory implements an in-process native driver.
//
// Servers hold shares, shares hold trees of directories and files. All
// contexts created for the same host see the same tree, so two sessions with
// different credentials observe each other's writes. Permission bits are
// enforced for the owner class only; there is a single principal per server.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/marmos91/remotefs/pkg/native"
)

// DriverName is reported by Driver.Name.
const DriverName = "memory"

// Config configures a Driver.
type Config struct {
	// AutoCreate makes unknown servers and shares spring into existence on
	// first use. When false, only servers added with AddShare are reachable.
	AutoCreate bool

	// OptimisticModes makes Stat report every entry as readable and
	// executable, the way SMB servers derive modes from DOS attributes.
	// Open and Opendir still enforce the real bits.
	OptimisticModes bool
}

// Driver is a native.Driver backed by memory.
type Driver struct {
	cfg Config

	mu      sync.RWMutex
	servers map[string]*server // keyed by lowercased host

	nextIno   atomic.Uint32
	contexts  atomic.Int64
	openFiles atomic.Int64
	openDirs  atomic.Int64
}

type server struct {
	name     string
	shares   map[string]*node
	accounts map[string]string // user -> password; empty admits everyone
}

var _ native.Driver = (*Driver)(nil)

// NewDriver creates an empty driver.
func NewDriver(cfg Config) *Driver {
	return &Driver{
		cfg:     cfg,
		servers: make(map[string]*server),
	}
}

// Name implements native.Driver.
func (d *Driver) Name() string {
	return DriverName
}

// NewContext implements native.Driver.
func (d *Driver) NewContext(opts native.ContextOptions) (native.Context, error) {
	if opts.Server == "" {
		return nil, fmt.Errorf("memory: empty server name: %w", syscall.EINVAL)
	}
	d.contexts.Add(1)
	return &Context{driver: d, opts: opts}, nil
}

// AddShare registers host (if needed) and an empty share on it.
func (d *Driver) AddShare(host, share string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	srv := d.serverLocked(host, true)
	if _, ok := srv.shares[share]; !ok {
		srv.shares[share] = d.newNode(share, true, 0o777)
	}
}

// AddAccount restricts host to the given accounts. The first call turns
// anonymous access off for that host.
func (d *Driver) AddAccount(host, user, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	srv := d.serverLocked(host, true)
	srv.accounts[user] = password
}

// LiveContexts returns the number of contexts that have not been freed.
func (d *Driver) LiveContexts() int {
	return int(d.contexts.Load())
}

// OpenFiles returns the number of files that have not been closed.
func (d *Driver) OpenFiles() int {
	return int(d.openFiles.Load())
}

// OpenDirs returns the number of directory streams that have not been closed.
func (d *Driver) OpenDirs() int {
	return int(d.openDirs.Load())
}

func (d *Driver) serverLocked(host string, create bool) *server {
	key := strings.ToLower(host)
	srv, ok := d.servers[key]
	if !ok && create {
		srv = &server{
			name:     host,
			shares:   make(map[string]*node),
			accounts: make(map[string]string),
		}
		d.servers[key] = srv
	}
	return srv
}

func (d *Driver) newNode(name string, dir bool, perm uint32) *node {
	now := time.Now()
	n := &node{
		name:  name,
		dir:   dir,
		perm:  perm & native.ModePerm,
		ino:   d.nextIno.Add(1),
		atime: now,
		mtime: now,
		ctime: now,
	}
	if dir {
		n.children = make(map[string]*node)
	}
	return n
}

// authenticate checks creds against the server's accounts.
func (srv *server) authenticate(creds native.Credentials) error {
	if len(srv.accounts) == 0 {
		return nil
	}
	password, ok := srv.accounts[creds.Username]
	if !ok || password != creds.Password {
		return fmt.Errorf("memory: logon failure for %q on %s: %w", creds.Username, srv.name, syscall.EACCES)
	}
	return nil
}

// checkContext fails fast on a cancelled context like the other stores do.
func checkContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
