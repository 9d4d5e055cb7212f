// Package session pools authenticated native contexts.
//
// # Architecture
//
// The package provides:
//   - Key: (protocol, host, user, password) identity of a connection
//   - Session: one native context bound to a Key, reference counted
//   - Registry: at most one live Session per Key, created lazily
//
// # Ownership
//
// A Session starts with one reference owned by the Registry. Every
// GetOrCreate hands out one more reference, which the caller must Release.
// The native context is freed when the last reference goes away, so a
// Session removed from the Registry stays usable by the handles that still
// hold it.
//
// # Usage
//
//	reg := session.NewRegistry(driver, session.Options{})
//	defer reg.Finalize()
//
//	s, err := reg.GetOrCreate(ctx, session.KeyFromURL(u))
//	if err != nil {
//		return err
//	}
//	defer s.Release()
//	st, err := s.Context().Stat(ctx, u.RemotePath())
//
// # Thread Safety
//
// Registry and Session methods are safe for concurrent use. The native
// context itself is used concurrently by every holder; drivers synchronize
// internally.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/remotefs/internal/logger"
	fserrors "github.com/marmos91/remotefs/pkg/errors"
	"github.com/marmos91/remotefs/pkg/native"
)

// Session is one authenticated native context.
type Session struct {
	id        string
	key       Key
	driver    string
	nctx      native.Context
	createdAt time.Time

	mu    sync.Mutex
	refs  int
	freed bool
}

// ID returns the session's unique identifier, for logs.
func (s *Session) ID() string { return s.id }

// Key returns the key the session was created for.
func (s *Session) Key() Key { return s.key }

// Driver returns the native driver name.
func (s *Session) Driver() string { return s.driver }

// CreatedAt returns when the session was initialized.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Context returns the native context. It must not be used after the
// caller's reference has been released.
func (s *Session) Context() native.Context { return s.nctx }

// Refs returns the current reference count.
func (s *Session) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Freed reports whether the native context has been released.
func (s *Session) Freed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freed
}

// Acquire adds a reference. It fails once the session has been freed.
func (s *Session) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.freed {
		return fserrors.New(fserrors.ErrInvalidArgument, "acquire session", "", "session %s already freed", s.id)
	}
	s.refs++
	return nil
}

// Release drops a reference and frees the native context when it was the
// last one. The error reports a failed free or an unbalanced release.
func (s *Session) Release() error {
	s.mu.Lock()
	if s.refs <= 0 {
		s.mu.Unlock()
		return fserrors.New(fserrors.ErrInvalidArgument, "release session", "", "session %s has no references", s.id)
	}
	s.refs--
	last := s.refs == 0
	if last {
		s.freed = true
	}
	s.mu.Unlock()

	if !last {
		return nil
	}

	err := s.nctx.Free()
	logger.Debug("Session freed",
		logger.KeySessionID, s.id,
		logger.KeyHost, s.key.Host,
		logger.KeyFingerprint, s.key.Fingerprint(),
		logger.Err(err))
	if err != nil {
		return fmt.Errorf("free session %s: %w", s.id, err)
	}
	return nil
}
