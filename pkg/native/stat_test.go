package native

import (
	"encoding/json"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatModes(t *testing.T) {
	dir := Stat{Mode: ModeDir | 0o755}
	assert.True(t, dir.IsDir())
	assert.Equal(t, fs.FileMode(0o755), dir.Perm())
	assert.Equal(t, fs.ModeDir|0o755, dir.FileMode())

	file := Stat{Mode: ModeFromFileMode(0o640)}
	assert.False(t, file.IsDir())
	assert.Equal(t, ModeRegular|0o640, file.Mode)
	assert.Equal(t, ModeDir|0o700, ModeFromFileMode(fs.ModeDir|0o700))
}

func TestUnix32(t *testing.T) {
	assert.Zero(t, Unix32(time.Time{}))
	assert.Zero(t, Unix32(time.Unix(-5, 0)))

	ts := time.Unix(1_700_000_000, 0)
	assert.Equal(t, uint32(1_700_000_000), Unix32(ts))
	assert.True(t, Stat{Mtime: Unix32(ts)}.ModTime().Equal(ts))
}

func TestBlocks(t *testing.T) {
	assert.Equal(t, uint32(0), Blocks(0))
	assert.Equal(t, uint32(1), Blocks(1))
	assert.Equal(t, uint32(1), Blocks(512))
	assert.Equal(t, uint32(2), Blocks(513))
}

func TestParsePerm(t *testing.T) {
	for in, want := range map[string]fs.FileMode{"0644": 0o644, "755": 0o755, "0o700": 0o700, "0": 0} {
		m, err := ParsePerm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, m, in)
	}
	for _, bad := range []string{"", "rwx", "9", "1777", "-1"} {
		_, err := ParsePerm(bad)
		assert.Error(t, err, bad)
	}
}

func TestEntryTypeText(t *testing.T) {
	b, err := json.Marshal(Dirent{Name: "docs", Type: EntryShare})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"docs","type":"share"}`, string(b))

	var d Dirent
	require.NoError(t, json.Unmarshal([]byte(`{"name":"a","type":"dir"}`), &d))
	assert.Equal(t, EntryDir, d.Type)

	require.NoError(t, json.Unmarshal([]byte(`{"name":"s","type":"socket"}`), &d))
	assert.Equal(t, EntryUnknown, d.Type)
}
