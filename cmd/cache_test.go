package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedCache isolates HOME and persists a few entries the commands can
// find.
func seedCache(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	m := newCacheManager()
	m.Set("default", "token", "tok-1")
	m.Set("sessions", "sid", map[string]any{"user": "ada"})
	m.Stop()
}

func TestCacheList(t *testing.T) {
	seedCache(t)

	out, _, err := runCommand(t, "cache", "list", "--json")
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "default", items[0]["namespace"])
	assert.Equal(t, "token", items[0]["key"])
	assert.Equal(t, "sessions", items[1]["namespace"])
}

func TestCacheList_Namespace(t *testing.T) {
	seedCache(t)

	out, _, err := runCommand(t, "cache", "list", "--namespace", "sessions", "--json")
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "sid", items[0]["key"])
}

func TestCacheGet(t *testing.T) {
	seedCache(t)

	out, _, err := runCommand(t, "cache", "get", "token")
	require.NoError(t, err)
	assert.Equal(t, "tok-1\n", out)
}

func TestCacheGet_JSON(t *testing.T) {
	seedCache(t)

	out, _, err := runCommand(t, "cache", "get", "sid", "--namespace", "sessions", "--json")
	require.NoError(t, err)

	var value map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &value))
	assert.Equal(t, map[string]any{"user": "ada"}, value)
}

func TestCacheGet_Missing(t *testing.T) {
	seedCache(t)

	_, _, err := runCommand(t, "cache", "get", "nope")
	assert.EqualError(t, err, `key "nope" not found in namespace "default"`)
}

func TestCacheDelete(t *testing.T) {
	seedCache(t)

	out, _, err := runCommand(t, "cache", "delete", "token")
	require.NoError(t, err)
	assert.Equal(t, "Deleted \"token\" from namespace \"default\"\n", out)

	_, _, err = runCommand(t, "cache", "get", "token")
	require.Error(t, err)
}

func TestCacheDelete_Missing(t *testing.T) {
	seedCache(t)

	_, _, err := runCommand(t, "cache", "delete", "nope", "--namespace", "sessions")
	assert.EqualError(t, err, `key "nope" not found in namespace "sessions"`)
}

func TestCacheClear_Namespace(t *testing.T) {
	seedCache(t)

	out, _, err := runCommand(t, "cache", "clear", "--namespace", "sessions")
	require.NoError(t, err)
	assert.Equal(t, "Cleared namespace \"sessions\"\n", out)

	out, _, err = runCommand(t, "cache", "list", "--json")
	require.NoError(t, err)
	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "default", items[0]["namespace"])
}

func TestCacheClear_All(t *testing.T) {
	seedCache(t)

	out, _, err := runCommand(t, "cache", "clear")
	require.NoError(t, err)
	assert.Equal(t, "Cleared all cache namespaces\n", out)

	out, _, err = runCommand(t, "cache", "stats")
	require.NoError(t, err)
	assert.Equal(t, "Cache is empty\n", out)
}

func TestCacheStats(t *testing.T) {
	seedCache(t)

	out, _, err := runCommand(t, "cache", "stats", "--json")
	require.NoError(t, err)

	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, float64(2), stats["totalEntries"])
}
