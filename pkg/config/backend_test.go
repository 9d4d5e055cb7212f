package config

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/marmos91/remotefs/pkg/metrics"
	"github.com/marmos91/remotefs/pkg/native/badger"
	"github.com/marmos91/remotefs/pkg/native/local"
	"github.com/marmos91/remotefs/pkg/native/memory"
)

func TestCreateDriver(t *testing.T) {
	tests := []struct {
		name    string
		cfg     BackendConfig
		want    string
		wantErr bool
	}{
		{name: "memory", cfg: BackendConfig{Type: BackendMemory}, want: memory.DriverName},
		{name: "empty type", cfg: BackendConfig{}, want: memory.DriverName},
		{name: "local", cfg: BackendConfig{Type: BackendLocal, Local: local.Config{Root: t.TempDir()}}, want: local.DriverName},
		{name: "local missing root", cfg: BackendConfig{Type: BackendLocal}, wantErr: true},
		{name: "badger", cfg: BackendConfig{Type: BackendBadger, Badger: badger.Config{InMemory: true}}, want: badger.DriverName},
		{name: "unknown", cfg: BackendConfig{Type: "nfs"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, closer, err := CreateDriver(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateDriver failed: %v", err)
			}
			defer func() {
				if err := closer(); err != nil {
					t.Errorf("closer failed: %v", err)
				}
			}()
			if d.Name() != tt.want {
				t.Errorf("Expected driver %q, got %q", tt.want, d.Name())
			}
		})
	}
}

func TestCreateDriver_MemorySharesAndAccounts(t *testing.T) {
	d, _, err := CreateDriver(BackendConfig{
		Type: BackendMemory,
		Memory: MemoryBackendConfig{
			Shares:   []string{"server/share"},
			Accounts: []AccountConfig{{Host: "server", User: "alice", Password: "pw"}},
		},
	})
	if err != nil {
		t.Fatalf("CreateDriver failed: %v", err)
	}

	mem, ok := d.(*memory.Driver)
	if !ok {
		t.Fatalf("Expected *memory.Driver, got %T", d)
	}
	if mem.LiveContexts() != 0 {
		t.Errorf("Expected no live contexts, got %d", mem.LiveContexts())
	}
}

func TestInitializeDispatcher(t *testing.T) {
	metrics.ResetRegistry()
	t.Cleanup(metrics.ResetRegistry)

	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = true

	d, shutdown, err := InitializeDispatcher(cfg)
	if err != nil {
		t.Fatalf("InitializeDispatcher failed: %v", err)
	}
	if !metrics.IsEnabled() {
		t.Error("Expected metrics registry to be initialized")
	}
	if d.Scheme() != "smb" {
		t.Errorf("Expected scheme 'smb', got %q", d.Scheme())
	}

	ctx := context.Background()
	id, err := d.Open(ctx, "smb://server/share/hello.txt", "w")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := d.Write(ctx, id, []byte("hi")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if d.OpenHandles() != 1 {
		t.Errorf("Expected one open handle, got %d", d.OpenHandles())
	}

	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if d.OpenHandles() != 0 {
		t.Errorf("Expected shutdown to close every handle, got %d", d.OpenHandles())
	}
	if d.Registry().Len() != 0 {
		t.Errorf("Expected shutdown to finalize every session, got %d", d.Registry().Len())
	}
}

func TestInitializeDispatcher_BadgerPersists(t *testing.T) {
	dir := t.TempDir()
	cfg := GetDefaultConfig()
	cfg.Backend = BackendConfig{Type: BackendBadger}
	cfg.Backend.Badger.Dir = dir
	cfg.Backend.Badger.AutoCreate = true
	ApplyDefaults(cfg)

	ctx := context.Background()
	write := func() {
		d, shutdown, err := InitializeDispatcher(cfg)
		if err != nil {
			t.Fatalf("InitializeDispatcher failed: %v", err)
		}
		id, err := d.Open(ctx, "smb://server/share/kept.txt", "w")
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if _, err := d.Write(ctx, id, []byte("persisted")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := shutdown(ctx); err != nil {
			t.Fatalf("shutdown failed: %v", err)
		}
	}
	write()

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Expected badger directory: %v", err)
	}

	d, shutdown, err := InitializeDispatcher(cfg)
	if err != nil {
		t.Fatalf("InitializeDispatcher failed: %v", err)
	}
	defer func() { _ = shutdown(ctx) }()

	id, err := d.Open(ctx, "smb://server/share/kept.txt", "r")
	if err != nil {
		t.Fatalf("Open after reopen failed: %v", err)
	}
	buf := make([]byte, 32)
	n, err := d.Read(ctx, id, buf)
	if err != nil && err != io.EOF {
		t.Fatalf("Read failed: %v", err)
	}
	if string(buf[:n]) != "persisted" {
		t.Errorf("Expected 'persisted', got %q", buf[:n])
	}
}
