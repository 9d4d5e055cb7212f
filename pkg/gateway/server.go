package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/dispatcher"
)

// Server exposes a dispatcher over HTTP.
//
// Endpoints:
//   - GET /health: Liveness probe with session and handle counts
//   - GET /metrics: Prometheus metrics (404 when metrics are disabled)
//   - GET /v1/stat?url=: Attributes of a file or directory
//   - GET, HEAD /v1/files?url=: Stream a file
//   - PUT /v1/files?url=[&append=true]: Write the request body to a file
//   - DELETE /v1/files?url=: Unlink a file
//   - GET /v1/dirs?url=: List a directory
//   - POST /v1/dirs?url=[&mode=0755]: Create a directory
//   - DELETE /v1/dirs?url=: Remove an empty directory
//   - POST /v1/rename?from=&to=: Rename within one session
//   - POST /v1/chmod?url=&mode=: Change permission bits
//
// The server supports graceful shutdown; the dispatcher is owned by the
// caller and is not shut down here.
type Server struct {
	server       *http.Server
	dispatcher   *dispatcher.Dispatcher
	config       Config
	shutdownOnce sync.Once

	mu   sync.Mutex
	addr net.Addr
}

// NewServer creates a stopped gateway. Call Start to begin serving.
func NewServer(config Config, d *dispatcher.Dispatcher) *Server {
	config.ApplyDefaults()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      NewRouter(d, config),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server:     server,
		dispatcher: d,
		config:     config,
	}
}

// Start serves until ctx is cancelled or the listener fails.
//
// Returns nil on graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Gateway listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Gateway shutdown signal received")
		// The cancelled ctx would abort shutdown immediately.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("gateway failed: %w", err)
	}
}

// Stop gracefully shuts the HTTP server down. It is safe to call more than
// once and concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("Gateway shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("gateway shutdown error: %w", err)
			logger.Error("Gateway shutdown error", logger.Err(err))
		} else {
			logger.Info("Gateway stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the configured TCP port.
func (s *Server) Port() int {
	return s.config.Port
}

// Addr returns the bound address once Start is listening, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
