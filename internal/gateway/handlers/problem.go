// Package handlers provides the HTTP handlers of the remotefs gateway.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/marmos91/remotefs/internal/logger"
	fserrors "github.com/marmos91/remotefs/pkg/errors"
)

// Problem represents an RFC 7807 "problem details" response.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	// If not set, defaults to "about:blank".
	Type string `json:"type,omitempty"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// Code is the remotefs error code (NotFound, PermissionDenied, ...)
	// when the problem comes from a filesystem operation.
	Code string `json:"code,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes an RFC 7807 problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblem(w, &Problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func writeProblem(w http.ResponseWriter, p *Problem) {
	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// StatusFor maps a remotefs error code to an HTTP status.
func StatusFor(code fserrors.ErrorCode) int {
	switch code {
	case fserrors.ErrNone:
		return http.StatusOK
	case fserrors.ErrInvalidArgument:
		return http.StatusBadRequest
	case fserrors.ErrPermissionDenied:
		return http.StatusForbidden
	case fserrors.ErrNotFound:
		return http.StatusNotFound
	case fserrors.ErrAlreadyExists, fserrors.ErrNotEmpty,
		fserrors.ErrIsDirectory, fserrors.ErrNotDirectory:
		return http.StatusConflict
	case fserrors.ErrConnectionFailed:
		return http.StatusBadGateway
	case fserrors.ErrResourceExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as a problem response whose status follows its
// remotefs error code. Server-side failures are logged.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code := fserrors.CodeOf(err)
	status := StatusFor(code)
	if status >= http.StatusInternalServerError {
		logger.WarnCtx(r.Context(), "Gateway operation failed",
			logger.KeyErrorCode, code.String(), logger.Err(err))
	}
	writeProblem(w, &Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: err.Error(),
		Code:   code.String(),
	})
}

// Common problem helper functions for standard HTTP errors.

// BadRequest writes a 400 Bad Request problem response.
func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

// NotFound writes a 404 Not Found problem response.
func NotFound(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusNotFound, "Not Found", detail)
}

// RequestEntityTooLarge writes a 413 problem response.
func RequestEntityTooLarge(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", detail)
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteJSONOK writes a 200 OK JSON response.
func WriteJSONOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteJSONCreated writes a 201 Created JSON response.
func WriteJSONCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
