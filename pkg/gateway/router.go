package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/remotefs/internal/gateway/handlers"
	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/dispatcher"
	"github.com/marmos91/remotefs/pkg/metrics"
)

// NewRouter creates the chi router with all middleware and routes.
//
// Middleware, in order: request ID, real IP, request logging on the
// internal logger, panic recovery.
//
// No request timeout middleware is installed: file transfers are bounded
// by the server's read and write timeouts instead.
func NewRouter(d *dispatcher.Dispatcher, cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	healthHandler := handlers.NewHealthHandler(d)
	r.Get("/health", healthHandler.Liveness)

	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		reg := metrics.GetRegistry()
		if reg == nil {
			handlers.NotFound(w, "metrics are disabled")
			return
		}
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(w, req)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	fileHandler := handlers.NewFileHandler(d, handlers.FileOptions{
		BufferSize:    cfg.BufferSize.Int(),
		MaxUploadSize: cfg.MaxUploadSize.Int64(),
	})
	dirHandler := handlers.NewDirHandler(d)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/stat", fileHandler.Stat)

		r.Route("/files", func(r chi.Router) {
			r.Get("/", fileHandler.Get)
			r.Head("/", fileHandler.Get)
			r.Put("/", fileHandler.Put)
			r.Delete("/", fileHandler.Delete)
		})

		r.Route("/dirs", func(r chi.Router) {
			r.Get("/", dirHandler.List)
			r.Post("/", dirHandler.Create)
			r.Delete("/", dirHandler.Remove)
		})

		r.Post("/rename", fileHandler.Rename)
		r.Post("/chmod", fileHandler.Chmod)
	})

	return r
}

// requestLogger logs each request on the internal logger.
//
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, bytes, duration
//   - Health and metrics scrapes are logged at DEBUG level to reduce noise
//
// Query strings are not logged: they carry URLs that may embed passwords.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("Gateway request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDurationMs, logger.Duration(start),
		}

		if isProbePath(r.URL.Path) {
			logger.Debug("Gateway request completed", logArgs...)
		} else {
			logger.Info("Gateway request completed", logArgs...)
		}
	})
}

func isProbePath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/metrics")
}
