// Package health provides the gateway health response shared by the
// gateway and its clients.
package health

// Response is the body of GET /health.
type Response struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		Service     string `json:"service"`
		StartedAt   string `json:"started_at"`
		Uptime      string `json:"uptime"`
		UptimeSec   int64  `json:"uptime_sec"`
		Driver      string `json:"driver"`
		Sessions    int    `json:"sessions"`
		OpenHandles int    `json:"open_handles"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// Healthy reports whether the gateway answered with a healthy status.
func (r *Response) Healthy() bool {
	return r.Status == "healthy"
}
