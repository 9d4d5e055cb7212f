package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	fserrors "github.com/marmos91/remotefs/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is a local-directory backend rooted in a temporary directory.
type testEnv struct {
	t      *testing.T
	config string
	root   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	root := filepath.Join(dir, "root")
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`logging:
  level: ERROR
backend:
  type: local
  local:
    root: %s
    auto_create: true
`, root)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return &testEnv{t: t, config: cfgPath, root: root}
}

// run executes rfs with args and returns stdout. Flag variables survive
// between executions of the same command tree, so they are reset first.
func (e *testEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	lsLong, lsParallel = false, 8
	putAppend, putBufferSize, catBufferSize = false, 0, 0
	rmForce, rmInteractive = false, false
	mkdirMode, mkdirParents = "0755", false
	versionShort = false
	loginUser, loginPassword = "", ""

	var out bytes.Buffer
	cmd := GetRootCmd()
	for _, name := range []string{"output", "ask-password", "no-color", "verbose"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NoError(e.t, f.Value.Set(f.DefValue))
	}
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) runJSON(v any, args ...string) {
	e.t.Helper()
	out, err := e.run("", append([]string{"-o", "json"}, args...)...)
	require.NoError(e.t, err)
	require.NoError(e.t, json.Unmarshal([]byte(out), v), out)
}

func TestPutCatLs(t *testing.T) {
	env := newTestEnv(t)
	url := "smb://server/share/hello.txt"

	var put PutResult
	out, err := env.run("hello", "-o", "json", "put", "-", url)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &put))
	assert.Equal(t, int64(5), put.BytesWritten)
	assert.Equal(t, "-", put.Source)

	data, err := os.ReadFile(filepath.Join(env.root, "server", "share", "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = env.run(" world", "-o", "json", "put", "--append", "-", url)
	require.NoError(t, err)

	out, err = env.run("", "cat", url)
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)

	var entries []map[string]any
	env.runJSON(&entries, "ls", "smb://server/share")
	require.Len(t, entries, 1)
	assert.Equal(t, "hello.txt", entries[0]["name"])
	assert.Equal(t, "file", entries[0]["type"])
	assert.NotContains(t, entries[0], "stat")

	entries = nil
	env.runJSON(&entries, "ls", "-l", "smb://server/share")
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "stat")

	out, err = env.run("", "-o", "table", "ls", "-l", "smb://server/share")
	require.NoError(t, err)
	assert.Contains(t, out, "hello.txt")
	assert.Contains(t, out, "11 B")
}

func TestPutFromFile(t *testing.T) {
	env := newTestEnv(t)
	src := filepath.Join(t.TempDir(), "src.bin")
	require.NoError(t, os.WriteFile(src, bytes.Repeat([]byte("x"), 1000), 0o600))

	_, err := env.run("", "put", "--buffer-size", "64", src, "smb://server/share/copy.bin")
	require.NoError(t, err)

	out, err := env.run("", "cat", "smb://server/share/copy.bin")
	require.NoError(t, err)
	assert.Len(t, out, 1000)
}

func TestLsEmptyDirectory(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("", "mkdir", "smb://server/share/empty")
	require.NoError(t, err)

	out, err := env.run("", "-o", "table", "ls", "smb://server/share/empty")
	require.NoError(t, err)
	assert.Contains(t, out, "is empty")

	out, err = env.run("", "-o", "json", "ls", "smb://server/share/empty")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestMkdirParentsAndRmdir(t *testing.T) {
	env := newTestEnv(t)

	var created PathsResult
	env.runJSON(&created, "mkdir", "-p", "-m", "0750", "smb://server/share/a/b/c")
	assert.Equal(t, []string{
		"smb://server/share/a",
		"smb://server/share/a/b",
		"smb://server/share/a/b/c",
	}, created.Created)

	info, err := os.Stat(filepath.Join(env.root, "server", "share", "a", "b", "c"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Existing parents are skipped with -p.
	created = PathsResult{}
	env.runJSON(&created, "mkdir", "-p", "smb://server/share/a/b/d")
	assert.Equal(t, []string{"smb://server/share/a/b/d"}, created.Created)

	_, err = env.run("", "mkdir", "smb://server/share/a")
	assert.Equal(t, fserrors.ErrAlreadyExists, fserrors.CodeOf(err))

	_, err = env.run("", "rmdir", "smb://server/share/a")
	assert.Equal(t, fserrors.ErrNotEmpty, fserrors.CodeOf(err))

	var removed PathsResult
	env.runJSON(&removed, "rmdir", "smb://server/share/a/b/c", "smb://server/share/a/b/d", "smb://server/share/a/b", "smb://server/share/a")
	assert.Len(t, removed.Removed, 4)

	_, err = os.Stat(filepath.Join(env.root, "server", "share", "a"))
	assert.True(t, os.IsNotExist(err))
}

func TestMkdirInvalidMode(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("", "mkdir", "-m", "rwx", "smb://server/share/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")
}

func TestMvStatRm(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("data", "put", "-", "smb://server/share/old.txt")
	require.NoError(t, err)

	var moved MoveResult
	env.runJSON(&moved, "mv", "smb://server/share/old.txt", "smb://server/share/new.txt")
	assert.Equal(t, "smb://server/share/new.txt", moved.To)

	_, err = env.run("", "stat", "smb://server/share/old.txt")
	require.Error(t, err)
	assert.Equal(t, ExitNotFound, ExitCode(err))

	var st map[string]any
	env.runJSON(&st, "stat", "smb://server/share/new.txt")
	assert.Equal(t, "file", st["type"])
	assert.EqualValues(t, 4, st["size"])

	out, err := env.run("", "-o", "table", "stat", "smb://server/share/new.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "Modified")

	var removed RemoveResult
	env.runJSON(&removed, "rm", "smb://server/share/new.txt")
	assert.Equal(t, []string{"smb://server/share/new.txt"}, removed.Removed)

	_, err = env.run("", "rm", "smb://server/share/new.txt")
	assert.True(t, fserrors.IsNotFound(err))

	_, err = env.run("", "rm", "-f", "smb://server/share/new.txt")
	assert.NoError(t, err)
}

func TestChmod(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("x", "put", "-", "smb://server/share/f")
	require.NoError(t, err)

	var res ChmodResult
	env.runJSON(&res, "chmod", "0600", "smb://server/share/f")
	assert.Equal(t, "0600", res.Mode)

	var st map[string]any
	env.runJSON(&st, "stat", "smb://server/share/f")
	assert.Equal(t, "0600", st["perm"])

	_, err = env.run("", "chmod", "u+x", "smb://server/share/f")
	assert.Error(t, err)
}

func TestMissingConfigFile(t *testing.T) {
	env := newTestEnv(t)
	env.config = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := env.run("", "ls", "smb://server/share")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rfs config init")
}

func TestLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("", "login", "FileServer", "-u", "alice", "-p", "secret")
	require.NoError(t, err)

	var hosts HostList
	env.runJSON(&hosts, "login")
	require.Len(t, hosts, 1)
	assert.Equal(t, "fileserver", hosts[0].Host)
	assert.Equal(t, "alice", hosts[0].User)

	_, err = env.run("", "logout", "fileserver")
	require.NoError(t, err)

	out, err := env.run("", "-o", "table", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved credentials")

	_, err = env.run("", "logout", "fileserver")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run("", "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)

	out, err = env.run("", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "rfs "+Version)
	assert.Contains(t, out, "Go version")
}

func TestCompletion(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run("", "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "rfs")

	_, err = env.run("", "completion", "tcsh")
	assert.Error(t, err)
}

func TestParentChain(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"smb://h/share", []string{"smb://h/share"}},
		{"smb://h/share/a", []string{"smb://h/share/a"}},
		{"smb://u:p@h/share/a/b/", []string{"smb://u:p@h/share/a", "smb://u:p@h/share/a/b"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parentChain(tt.in), tt.in)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New("boom"), ExitError},
		{&fserrors.Error{Code: fserrors.ErrNotFound}, ExitNotFound},
		{fmt.Errorf("wrapped: %w", syscall.ENOENT), ExitNotFound},
		{syscall.EACCES, ExitPermission},
		{&fserrors.Error{Code: fserrors.ErrConnectionFailed}, ExitConnection},
		{&fserrors.Error{Code: fserrors.ErrInvalidArgument}, ExitInvalidUsage},
		{&fserrors.Error{Code: fserrors.ErrNotEmpty}, ExitError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}
