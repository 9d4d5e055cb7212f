package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/dispatcher"
	"github.com/marmos91/remotefs/pkg/native"
	"github.com/marmos91/remotefs/pkg/smburl"
	"github.com/marmos91/remotefs/pkg/transfer"
)

// FileOptions tunes file transfers.
type FileOptions struct {
	// BufferSize is the per-call transfer size. Zero selects
	// transfer.DefaultBufferSize.
	BufferSize int

	// MaxUploadSize caps PUT bodies. Zero means unlimited.
	MaxUploadSize int64
}

// FileHandler serves file and path operations.
type FileHandler struct {
	dispatcher *dispatcher.Dispatcher
	opts       FileOptions
}

// NewFileHandler creates a file handler.
func NewFileHandler(d *dispatcher.Dispatcher, opts FileOptions) *FileHandler {
	return &FileHandler{dispatcher: d, opts: opts}
}

// StatResponse is the body of GET /v1/stat.
type StatResponse struct {
	URL     string      `json:"url"`
	Type    string      `json:"type"`
	Perm    string      `json:"perm"`
	Size    uint64      `json:"size"`
	ModTime time.Time   `json:"mod_time"`
	Stat    native.Stat `json:"stat"`
}

// NewStatResponse builds a StatResponse. rawURL is redacted.
func NewStatResponse(rawURL string, st native.Stat) StatResponse {
	typ := native.EntryFile
	if st.IsDir() {
		typ = native.EntryDir
	}
	return StatResponse{
		URL:     smburl.Parse(rawURL).String(),
		Type:    typ.String(),
		Perm:    fmt.Sprintf("%04o", st.Perm()),
		Size:    st.Size,
		ModTime: st.ModTime().UTC(),
		Stat:    st,
	}
}

// Stat handles GET /v1/stat?url=.
func (h *FileHandler) Stat(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireParam(w, r, "url")
	if !ok {
		return
	}

	st, err := h.dispatcher.URLStat(r.Context(), rawURL)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSONOK(w, NewStatResponse(rawURL, st))
}

// Get handles GET /v1/files?url= by streaming the file body.
//
// Errors detected before the first byte are reported as problems. A failure
// mid-stream can only abort the response; it is logged.
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireParam(w, r, "url")
	if !ok {
		return
	}
	ctx := r.Context()

	id, err := h.dispatcher.Open(ctx, rawURL, "r")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	defer func() {
		// The client may have gone away; the handle must still be released.
		if err := h.dispatcher.Close(context.WithoutCancel(ctx), id); err != nil {
			logger.WarnCtx(ctx, "Failed to close streamed file", logger.Handle(int64(id)), logger.Err(err))
		}
	}()

	st, err := h.dispatcher.Fstat(ctx, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatUint(st.Size, 10))
	w.Header().Set("Last-Modified", st.ModTime().UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}

	n, err := transfer.ReadTo(ctx, h.dispatcher, id, w, transfer.Options{BufferSize: h.opts.BufferSize})
	if err != nil {
		logger.WarnCtx(ctx, "File stream aborted",
			logger.KeyURL, smburl.Parse(rawURL).String(),
			logger.KeyBytesRead, n,
			logger.Err(err))
	}
}

// PutResponse is the body of a successful PUT /v1/files.
type PutResponse struct {
	URL          string `json:"url"`
	BytesWritten int64  `json:"bytes_written"`
}

// Put handles PUT /v1/files?url=[&append=true]. The body replaces the file
// contents, or is appended to them.
func (h *FileHandler) Put(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireParam(w, r, "url")
	if !ok {
		return
	}
	appendMode, _ := strconv.ParseBool(r.URL.Query().Get("append"))

	if h.opts.MaxUploadSize > 0 {
		if r.ContentLength > h.opts.MaxUploadSize {
			RequestEntityTooLarge(w, fmt.Sprintf("body exceeds %d bytes", h.opts.MaxUploadSize))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadSize)
	}

	n, err := transfer.Upload(r.Context(), h.dispatcher, rawURL, r.Body, transfer.Options{
		BufferSize: h.opts.BufferSize,
		Append:     appendMode,
	})
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RequestEntityTooLarge(w, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		WriteError(w, r, err)
		return
	}

	status := http.StatusCreated
	if appendMode {
		status = http.StatusOK
	}
	WriteJSON(w, status, PutResponse{URL: smburl.Parse(rawURL).String(), BytesWritten: n})
}

// Delete handles DELETE /v1/files?url=.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireParam(w, r, "url")
	if !ok {
		return
	}
	if err := h.dispatcher.Unlink(r.Context(), rawURL); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteNoContent(w)
}

// Rename handles POST /v1/rename?from=&to=.
func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	from, ok := requireParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := requireParam(w, r, "to")
	if !ok {
		return
	}
	if err := h.dispatcher.Rename(r.Context(), from, to); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteNoContent(w)
}

// Chmod handles POST /v1/chmod?url=&mode=.
func (h *FileHandler) Chmod(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireParam(w, r, "url")
	if !ok {
		return
	}
	if _, ok := requireParam(w, r, "mode"); !ok {
		return
	}
	mode, ok := modeParam(w, r, 0)
	if !ok {
		return
	}
	if err := h.dispatcher.Chmod(r.Context(), rawURL, mode); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteNoContent(w)
}
