package handlers

import (
	"net/http"

	"github.com/marmos91/remotefs/pkg/dispatcher"
	"github.com/marmos91/remotefs/pkg/smburl"
	"github.com/marmos91/remotefs/pkg/transfer"
)

// DefaultDirMode is used by POST /v1/dirs without a mode parameter.
const DefaultDirMode = 0o755

// DirHandler serves directory operations.
type DirHandler struct {
	dispatcher *dispatcher.Dispatcher
}

// NewDirHandler creates a directory handler.
func NewDirHandler(d *dispatcher.Dispatcher) *DirHandler {
	return &DirHandler{dispatcher: d}
}

// ListResponse is the body of GET /v1/dirs.
type ListResponse struct {
	URL     string           `json:"url"`
	Entries []transfer.Entry `json:"entries"`
}

// List handles GET /v1/dirs?url=.
func (h *DirHandler) List(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireParam(w, r, "url")
	if !ok {
		return
	}

	entries, err := transfer.ListDetailed(r.Context(), h.dispatcher, rawURL, transfer.Options{})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if entries == nil {
		entries = []transfer.Entry{}
	}
	WriteJSONOK(w, ListResponse{URL: smburl.Parse(rawURL).String(), Entries: entries})
}

// Create handles POST /v1/dirs?url=[&mode=0755].
func (h *DirHandler) Create(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireParam(w, r, "url")
	if !ok {
		return
	}
	mode, ok := modeParam(w, r, DefaultDirMode)
	if !ok {
		return
	}
	if err := h.dispatcher.Mkdir(r.Context(), rawURL, mode); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// Remove handles DELETE /v1/dirs?url=.
func (h *DirHandler) Remove(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireParam(w, r, "url")
	if !ok {
		return
	}
	if err := h.dispatcher.Rmdir(r.Context(), rawURL); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteNoContent(w)
}
