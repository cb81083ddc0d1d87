package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if opts.BaseDir == "" {
		opts.BaseDir = t.TempDir()
	}
	if opts.CleanupInterval == 0 {
		opts.CleanupInterval = -1
	}
	m := NewManager(opts)
	t.Cleanup(m.Stop)
	return m
}

func TestSetGet(t *testing.T) {
	m := newTestManager(t, Options{})

	m.Set("ns", "key1", "value1")

	val, ok := m.Get("ns", "key1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if val != "value1" {
		t.Errorf("expected value1, got %v", val)
	}
}

func TestGetMiss(t *testing.T) {
	m := newTestManager(t, Options{})

	if _, ok := m.Get("ns", "nonexistent"); ok {
		t.Error("expected cache miss")
	}
}

func TestPersistenceAcrossManagers(t *testing.T) {
	dir := t.TempDir()

	first := newTestManager(t, Options{BaseDir: dir})
	first.Set("session", "token", "abc123")

	second := newTestManager(t, Options{BaseDir: dir})
	val, ok := second.Get("session", "token")
	if !ok {
		t.Fatal("expected value persisted by the first manager")
	}
	if val != "abc123" {
		t.Errorf("expected abc123, got %v", val)
	}
}

func TestFileFormat(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, Options{BaseDir: dir, DefaultTTL: time.Minute})
	m.Set("ns", "key", "value")

	data, err := os.ReadFile(filepath.Join(dir, "ns.json"))
	if err != nil {
		t.Fatalf("reading namespace file: %v", err)
	}

	var decoded map[string]struct {
		Value     any   `json:"value"`
		CreatedAt int64 `json:"createdAt"`
		TTLMs     int64 `json:"ttlMs"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoding namespace file: %v", err)
	}
	e, ok := decoded["key"]
	if !ok {
		t.Fatal("expected key in namespace file")
	}
	if e.Value != "value" {
		t.Errorf("expected value, got %v", e.Value)
	}
	if e.TTLMs != time.Minute.Milliseconds() {
		t.Errorf("expected ttlMs %d, got %d", time.Minute.Milliseconds(), e.TTLMs)
	}
	if e.CreatedAt == 0 {
		t.Error("expected non-zero createdAt")
	}
}

func TestTTLExpiration(t *testing.T) {
	m := newTestManager(t, Options{DefaultTTL: time.Minute})

	base := time.Now()
	m.now = func() time.Time { return base }
	m.Set("ns", "key", "value")

	if _, ok := m.Get("ns", "key"); !ok {
		t.Fatal("expected hit before expiry")
	}

	m.now = func() time.Time { return base.Add(time.Minute) }
	if _, ok := m.Get("ns", "key"); ok {
		t.Error("expected miss once now >= createdAt + ttl")
	}
	if m.Size("ns") != 0 {
		t.Errorf("expected expired entry removed, size %d", m.Size("ns"))
	}
}

func TestSetWithTTLOverridesDefault(t *testing.T) {
	m := newTestManager(t, Options{DefaultTTL: time.Minute})

	base := time.Now()
	m.now = func() time.Time { return base }
	m.SetWithTTL("ns", "long", "v", time.Hour)

	m.now = func() time.Time { return base.Add(30 * time.Minute) }
	if _, ok := m.Get("ns", "long"); !ok {
		t.Error("expected entry with one hour TTL to survive 30 minutes")
	}
}

func TestDelete(t *testing.T) {
	m := newTestManager(t, Options{})
	m.Set("ns", "key", "value")

	if !m.Delete("ns", "key") {
		t.Error("expected delete of existing key to report true")
	}
	if m.Delete("ns", "key") {
		t.Error("expected delete of missing key to report false")
	}
	if _, ok := m.Get("ns", "key"); ok {
		t.Error("expected miss after delete")
	}
}

func TestClearRemovesFile(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, Options{BaseDir: dir})
	m.Set("ns", "key", "value")

	m.Clear("ns")

	if m.Size("ns") != 0 {
		t.Error("expected empty namespace after clear")
	}
	if _, err := os.Stat(filepath.Join(dir, "ns.json")); !os.IsNotExist(err) {
		t.Error("expected namespace file removed")
	}
}

func TestClearAll(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, Options{BaseDir: dir})
	m.Set("a", "k", 1)
	m.Set("b", "k", 2)

	m.ClearAll()

	if m.Size("a") != 0 || m.Size("b") != 0 {
		t.Error("expected all namespaces empty")
	}
}

func TestKeysSortedAndLive(t *testing.T) {
	m := newTestManager(t, Options{DefaultTTL: time.Minute})

	base := time.Now()
	m.now = func() time.Time { return base }
	m.SetWithTTL("ns", "zebra", 1, time.Hour)
	m.SetWithTTL("ns", "alpha", 2, time.Hour)
	m.SetWithTTL("ns", "gone", 3, time.Second)

	m.now = func() time.Time { return base.Add(time.Minute) }
	keys := m.Keys("ns")
	if len(keys) != 2 || keys[0] != "alpha" || keys[1] != "zebra" {
		t.Errorf("expected [alpha zebra], got %v", keys)
	}
}

func TestEvictionDropsEarliestInserts(t *testing.T) {
	m := newTestManager(t, Options{MaxEntriesPerNamespace: 3, DefaultTTL: time.Hour})

	base := time.Now()
	for i := 0; i < 5; i++ {
		tick := base.Add(time.Duration(i) * time.Second)
		m.now = func() time.Time { return tick }
		m.Set("ns", fmt.Sprintf("key%d", i), i)
	}

	if size := m.Size("ns"); size != 3 {
		t.Fatalf("expected namespace capped at 3, got %d", size)
	}
	for _, gone := range []string{"key0", "key1"} {
		if m.Has("ns", gone) {
			t.Errorf("expected %s evicted", gone)
		}
	}
	for _, kept := range []string{"key2", "key3", "key4"} {
		if !m.Has("ns", kept) {
			t.Errorf("expected %s kept", kept)
		}
	}
}

func TestUpdatingExistingKeyNeverEvicts(t *testing.T) {
	m := newTestManager(t, Options{MaxEntriesPerNamespace: 2, DefaultTTL: time.Hour})

	base := time.Now()
	m.now = func() time.Time { return base }
	m.Set("ns", "a", 1)
	m.now = func() time.Time { return base.Add(time.Second) }
	m.Set("ns", "b", 2)

	m.now = func() time.Time { return base.Add(2 * time.Second) }
	m.Set("ns", "a", 10)

	if m.Size("ns") != 2 {
		t.Errorf("expected both keys present, size %d", m.Size("ns"))
	}
	if val, _ := m.Get("ns", "a"); val != 10 {
		t.Errorf("expected updated value 10, got %v", val)
	}
}

func TestCorruptFileYieldsEmptyNamespace(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ns.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := newTestManager(t, Options{BaseDir: dir})
	if _, ok := m.Get("ns", "key"); ok {
		t.Error("expected empty view over corrupt file")
	}

	// The namespace stays usable.
	m.Set("ns", "key", "fresh")
	if _, ok := m.Get("ns", "key"); !ok {
		t.Error("expected write to succeed after corrupt load")
	}
}

func TestNamespacesIncludeDiskOnly(t *testing.T) {
	dir := t.TempDir()

	first := newTestManager(t, Options{BaseDir: dir})
	first.Set("stored", "k", "v")

	second := newTestManager(t, Options{BaseDir: dir})
	second.Set("memory", "k", "v")

	names := second.Namespaces()
	if len(names) != 2 || names[0] != "memory" || names[1] != "stored" {
		t.Errorf("expected [memory stored], got %v", names)
	}
}

func TestStats(t *testing.T) {
	m := newTestManager(t, Options{DefaultTTL: time.Minute})

	base := time.Now()
	m.now = func() time.Time { return base }
	m.SetWithTTL("a", "live", 1, time.Hour)
	m.SetWithTTL("a", "dead", 2, time.Second)
	m.SetWithTTL("b", "live", 3, time.Hour)

	m.now = func() time.Time { return base.Add(time.Minute) }
	stats := m.Stats()

	if stats.TotalEntries != 2 {
		t.Errorf("expected 2 live entries, got %d", stats.TotalEntries)
	}
	if stats.TotalExpired != 1 {
		t.Errorf("expected 1 expired entry, got %d", stats.TotalExpired)
	}
	if len(stats.Namespaces) != 2 {
		t.Fatalf("expected 2 namespaces, got %d", len(stats.Namespaces))
	}
	if stats.Namespaces[0].Name != "a" || stats.Namespaces[0].Expired != 1 {
		t.Errorf("unexpected namespace stats: %+v", stats.Namespaces[0])
	}
}

func TestCleanupPersistsPruning(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, Options{BaseDir: dir})

	base := time.Now()
	m.now = func() time.Time { return base }
	m.SetWithTTL("ns", "dead", 1, time.Second)
	m.SetWithTTL("ns", "live", 2, time.Hour)

	m.now = func() time.Time { return base.Add(time.Minute) }
	m.Cleanup()

	data, err := os.ReadFile(filepath.Join(dir, "ns.json"))
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["dead"]; ok {
		t.Error("expected expired entry removed from file")
	}
	if _, ok := decoded["live"]; !ok {
		t.Error("expected live entry kept in file")
	}
}

func TestPluginCacheIsolation(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, Options{BaseDir: dir})

	pc := m.PluginCache("oauth2")
	pc.Set("token", "secret")

	if pc.Namespace() != "plugin:oauth2" {
		t.Errorf("unexpected namespace %q", pc.Namespace())
	}
	if _, ok := m.Get("oauth2", "token"); ok {
		t.Error("plugin entries must not leak into a bare namespace")
	}
	if val, ok := m.Get("plugin:oauth2", "token"); !ok || val != "secret" {
		t.Errorf("expected plugin entry under plugin:oauth2, got %v %v", val, ok)
	}

	// The colon is replaced in the file name.
	if _, err := os.Stat(filepath.Join(dir, "plugin_oauth2.json")); err != nil {
		t.Errorf("expected sanitized namespace file: %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	m := NewManager(Options{BaseDir: t.TempDir(), CleanupInterval: time.Hour})
	m.Stop()
	m.Stop()
}
