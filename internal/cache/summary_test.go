package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *SummaryCache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "summary_cache"), 15)
	require.NoError(t, err)
	return c
}

func age(t *testing.T, path string, d time.Duration) {
	t.Helper()
	old := time.Now().Add(-d)
	require.NoError(t, os.Chtimes(path, old, old))
}

func TestKey(t *testing.T) {
	// sha1("hello")
	assert.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", Key("hello", "", ""))
	assert.Len(t, Key("x", "p", "f"), 40)
	assert.Equal(t, Key("x", "p", "f"), Key("x", "p", "f"))

	// filename wraps project wraps text
	assert.Equal(t, Key("f::p::x", "", ""), Key("x", "p", "f"))
	assert.Equal(t, Key("p::x", "", ""), Key("x", "p", ""))
	assert.NotEqual(t, Key("x", "p1", "f1"), Key("x", "p2", "f1"))
}

func TestPutGet_ScopedRoundTrip(t *testing.T) {
	c := newTestCache(t)

	path, err := c.Put("X", "S", "p1", "f1")
	require.NoError(t, err)
	assert.FileExists(t, path)

	got, ok := c.Get("X", "p1", "f1")
	assert.True(t, ok)
	assert.Equal(t, "S", got)

	_, ok = c.Get("X", "", "")
	assert.False(t, ok, "unscoped lookup must use a distinct key")
}

func TestPutGet_TextOnly(t *testing.T) {
	c := newTestCache(t)
	_, err := c.Put("X", "S", "", "")
	require.NoError(t, err)

	got, ok := c.Get("X", "", "")
	assert.True(t, ok)
	assert.Equal(t, "S", got)
}

func TestPut_EntryFormat(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.FixedZone("IST", 19800))
	c, err := New(t.TempDir(), 15, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	path, err := c.Put("text", "summary", "proj", "")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "summary", raw["summary"])
	assert.Equal(t, "2024-06-01T04:30:00Z", raw["created_at"])
	assert.Equal(t, "proj", raw["project"])
	assert.Contains(t, raw, "filename")
	assert.Nil(t, raw["filename"])
}

func TestGet_ExpiredEntryIsRemoved(t *testing.T) {
	c := newTestCache(t)
	path, err := c.Put("X", "S", "p", "f")
	require.NoError(t, err)
	age(t, path, 16*24*time.Hour)

	got, status := c.Lookup("X", "p", "f")
	assert.Equal(t, StatusExpired, status)
	assert.Empty(t, got)
	assert.NoFileExists(t, path)

	_, status = c.Lookup("X", "p", "f")
	assert.Equal(t, StatusMiss, status)
}

func TestGet_CorruptEntryIsRemoved(t *testing.T) {
	c := newTestCache(t)
	path := filepath.Join(c.dir, Key("X", "", "")+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, status := c.Lookup("X", "", "")
	assert.Equal(t, StatusCorrupt, status)
	assert.NoFileExists(t, path)
}

func TestPut_OverwritesExisting(t *testing.T) {
	c := newTestCache(t)
	_, err := c.Put("X", "old", "p", "f")
	require.NoError(t, err)
	_, err = c.Put("X", "new", "p", "f")
	require.NoError(t, err)

	got, ok := c.Get("X", "p", "f")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestSweep(t *testing.T) {
	c := newTestCache(t)
	oldPath, err := c.Put("old", "S", "", "")
	require.NoError(t, err)
	freshPath, err := c.Put("fresh", "S", "", "")
	require.NoError(t, err)
	age(t, oldPath, 20*24*time.Hour)
	age(t, freshPath, 2*24*time.Hour)

	other := filepath.Join(c.dir, "README.txt")
	require.NoError(t, os.WriteFile(other, []byte("keep"), 0o644))
	age(t, other, 40*24*time.Hour)

	n, err := c.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, freshPath)
	assert.FileExists(t, other)
}
