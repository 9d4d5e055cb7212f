package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/remotefs/internal/cli/health"
	"github.com/marmos91/remotefs/pkg/dispatcher"
)

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	dispatcher *dispatcher.Dispatcher
	startTime  time.Time
}

// NewHealthHandler creates a health handler. d may be nil, in which case
// the probe reports unhealthy.
func NewHealthHandler(d *dispatcher.Dispatcher) *HealthHandler {
	return &HealthHandler{
		dispatcher: d,
		startTime:  time.Now(),
	}
}

// Liveness handles GET /health.
//
// Returns 200 OK with uptime, live sessions and open handles while the
// dispatcher is available.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := health.Response{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if h.dispatcher == nil {
		resp.Status = "unhealthy"
		resp.Error = "dispatcher not initialized"
		WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	uptime := time.Since(h.startTime)
	resp.Data.Service = "remotefs"
	resp.Data.StartedAt = h.startTime.UTC().Format(time.RFC3339)
	resp.Data.Uptime = uptime.Round(time.Second).String()
	resp.Data.UptimeSec = int64(uptime.Seconds())
	resp.Data.Driver = h.dispatcher.Registry().Driver().Name()
	resp.Data.Sessions = h.dispatcher.Registry().Len()
	resp.Data.OpenHandles = h.dispatcher.OpenHandles()

	WriteJSONOK(w, resp)
}
