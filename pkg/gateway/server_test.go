package gateway

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/remotefs/pkg/dispatcher"
	"github.com/marmos91/remotefs/pkg/metrics"
	"github.com/marmos91/remotefs/pkg/native/memory"
	"github.com/marmos91/remotefs/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	drv := memory.NewDriver(memory.Config{AutoCreate: true})
	d := dispatcher.New(session.NewRegistry(drv, session.Options{}), dispatcher.Options{})
	t.Cleanup(func() { _ = d.Shutdown(context.Background()) })
	return d
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestRouter_FileRoundTrip(t *testing.T) {
	srv := httptest.NewServer(NewRouter(newTestDispatcher(t), Config{}))
	defer srv.Close()

	q := "?url=" + url.QueryEscape("smb://host/share/notes.txt")

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/files"+q, strings.NewReader("remote"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/files" + q)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "remote", string(body))

	resp, err = http.Head(srv.URL + "/v1/files" + q)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 6, resp.ContentLength)

	resp, err = http.Get(srv.URL + "/v1/dirs?url=" + url.QueryEscape("smb://host/share"))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"name":"notes.txt"`)
}

func TestRouter_Health(t *testing.T) {
	srv := httptest.NewServer(NewRouter(newTestDispatcher(t), Config{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/health", resp.Request.URL.Path)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	srv := httptest.NewServer(NewRouter(newTestDispatcher(t), Config{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/stat", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRouter_Metrics(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		metrics.ResetRegistry()
		srv := httptest.NewServer(NewRouter(newTestDispatcher(t), Config{}))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("enabled", func(t *testing.T) {
		metrics.InitRegistry()
		t.Cleanup(metrics.ResetRegistry)
		srv := httptest.NewServer(NewRouter(newTestDispatcher(t), Config{}))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "go_goroutines")
	})
}

func TestServer_StartStop(t *testing.T) {
	port := freePort(t)
	s := NewServer(Config{Port: port}, newTestDispatcher(t))
	assert.Equal(t, port, s.Port())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != nil }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	// Stop is idempotent.
	assert.NoError(t, s.Stop(context.Background()))
}

func TestServer_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	s := NewServer(Config{Port: ln.Addr().(*net.TCPAddr).Port}, newTestDispatcher(t))
	err = s.Start(context.Background())
	assert.ErrorContains(t, err, "gateway listen")
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()

	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, 30*time.Second, c.ReadTimeout)
	assert.Equal(t, 5*time.Minute, c.WriteTimeout)
	assert.Equal(t, 60*time.Second, c.IdleTimeout)
	assert.NotZero(t, c.MaxUploadSize)
}
