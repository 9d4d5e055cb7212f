package handlers

import (
	"fmt"
	"io/fs"
	"net/http"

	"github.com/marmos91/remotefs/pkg/native"
)

// requireParam returns the named query parameter, writing a 400 when it is
// missing.
func requireParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		BadRequest(w, fmt.Sprintf("missing %q query parameter", name))
		return "", false
	}
	return v, true
}

// modeParam returns the "mode" query parameter or def when absent.
func modeParam(w http.ResponseWriter, r *http.Request, def fs.FileMode) (fs.FileMode, bool) {
	s := r.URL.Query().Get("mode")
	if s == "" {
		return def, true
	}
	m, err := native.ParsePerm(s)
	if err != nil {
		BadRequest(w, err.Error())
		return 0, false
	}
	return m, true
}
