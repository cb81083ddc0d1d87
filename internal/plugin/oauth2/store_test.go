package oauth2

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleToken() *Token {
	return &Token{
		AccessToken:  "at-12345",
		TokenType:    "Bearer",
		RefreshToken: "rt-67890",
		Scope:        "read write",
		ExpiresAt:    time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	first, err := newFileStore(dir)
	require.NoError(t, err)
	first.Put("key-a", sampleToken())

	// A second store over the same directory simulates a later
	// invocation and must decrypt what the first one wrote.
	second, err := newFileStore(dir)
	require.NoError(t, err)

	got, ok := second.Get("key-a")
	require.True(t, ok)
	assert.Equal(t, sampleToken(), got)
}

func TestFileStore_RecordsAreSealed(t *testing.T) {
	dir := t.TempDir()
	store, err := newFileStore(dir)
	require.NoError(t, err)

	store.Put("key-a", sampleToken())

	raw, err := os.ReadFile(filepath.Join(dir, "key-a.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "at-12345", "token material must not be readable on disk")
	assert.NotContains(t, string(raw), "rt-67890")
	assert.True(t, strings.Contains(string(raw), ":"), "record is iv:ciphertext")
}

func TestFileStore_OwnerOnlyPermissions(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "tokens")
	store, err := newFileStore(dir)
	require.NoError(t, err)

	store.Put("key-a", sampleToken())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	fileInfo, err := os.Stat(filepath.Join(dir, "key-a.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fileInfo.Mode().Perm())
}

func TestFileStore_CorruptRecordIsAMiss(t *testing.T) {
	dir := t.TempDir()
	store, err := newFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "key-a.json"), []byte("not a sealed record"), 0o600))

	_, ok := store.Get("key-a")
	assert.False(t, ok)
}

func TestFileStore_Delete(t *testing.T) {
	dir := t.TempDir()
	store, err := newFileStore(dir)
	require.NoError(t, err)

	store.Put("key-a", sampleToken())
	store.Delete("key-a")

	_, ok := store.Get("key-a")
	assert.False(t, ok)

	// Deleting an absent record is not an error.
	store.Delete("key-a")
}

func TestMemoryStore(t *testing.T) {
	store := newMemoryStore()

	_, ok := store.Get("key-a")
	assert.False(t, ok)

	store.Put("key-a", sampleToken())
	got, ok := store.Get("key-a")
	require.True(t, ok)
	assert.Equal(t, "at-12345", got.AccessToken)

	store.Delete("key-a")
	_, ok = store.Get("key-a")
	assert.False(t, ok)
}

func TestNewTokenStore_ExplicitTiers(t *testing.T) {
	assert.IsType(t, &memoryStore{}, newTokenStore(storageMemory, t.TempDir()))
	assert.IsType(t, &fileStore{}, newTokenStore(storageFile, t.TempDir()))

	// A file tier that cannot be set up degrades to memory rather than
	// failing the plugin.
	assert.IsType(t, &memoryStore{}, newTokenStore(storageFile, ""))
}
