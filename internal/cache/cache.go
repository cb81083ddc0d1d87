package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"httpcraft/pkg/logging"
)

// entry is the persisted shape of one cached value. CreatedAt is unix
// milliseconds, matching the on-disk JSON format.
type entry struct {
	Value     any   `json:"value"`
	CreatedAt int64 `json:"createdAt"`
	TTLMs     int64 `json:"ttlMs"`
}

func (e entry) expired(now time.Time) bool {
	return now.UnixMilli() >= e.CreatedAt+e.TTLMs
}

// Options configures the cache manager.
type Options struct {
	// BaseDir holds one JSON file per namespace. Defaults to
	// $HOME/.httpcraft/cache.
	BaseDir string

	// DefaultTTL applies when Set is called without an explicit TTL.
	DefaultTTL time.Duration

	// MaxEntriesPerNamespace caps each namespace; inserting a new key into
	// a full namespace evicts the oldest entry by creation time.
	MaxEntriesPerNamespace int

	// CleanupInterval is the period of the background expiry sweep. Zero
	// selects the default; a negative value disables the sweep.
	CleanupInterval time.Duration
}

// Manager is a namespaced key-value store with TTL expiry and atomic file
// persistence. One instance is shared process-wide; all operations are
// serialized through its lock.
type Manager struct {
	mu     sync.Mutex
	opts   Options
	spaces map[string]map[string]entry
	loaded map[string]struct{}

	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManager creates a cache manager and, unless disabled, starts the
// background cleanup sweep. Call Stop for a clean shutdown.
func NewManager(opts Options) *Manager {
	if opts.BaseDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			opts.BaseDir = filepath.Join(home, ".httpcraft", "cache")
		} else {
			opts.BaseDir = ".httpcraft-cache"
		}
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = time.Hour
	}
	if opts.MaxEntriesPerNamespace <= 0 {
		opts.MaxEntriesPerNamespace = 1000
	}
	if opts.CleanupInterval == 0 {
		opts.CleanupInterval = 10 * time.Minute
	}

	m := &Manager{
		opts:   opts,
		spaces: map[string]map[string]entry{},
		loaded: map[string]struct{}{},
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	if opts.CleanupInterval > 0 {
		go m.cleanupLoop(opts.CleanupInterval)
	}
	return m
}

func (m *Manager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Cleanup()
		case <-m.stopCh:
			return
		}
	}
}

// Stop halts the background cleanup sweep. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Get returns the live value for key in namespace ns.
func (m *Manager) Get(ns, key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	space := m.loadLocked(ns)
	e, ok := space[key]
	if !ok {
		return nil, false
	}
	if e.expired(m.now()) {
		delete(space, key)
		m.persistLocked(ns)
		return nil, false
	}
	return e.Value, true
}

// Has reports whether a live entry exists for key in namespace ns.
func (m *Manager) Has(ns, key string) bool {
	_, ok := m.Get(ns, key)
	return ok
}

// Set stores value under key with the default TTL.
func (m *Manager) Set(ns, key string, value any) {
	m.SetWithTTL(ns, key, value, m.opts.DefaultTTL)
}

// SetWithTTL stores value under key. A non-positive ttl falls back to the
// default. When the key is new and the namespace is full, the entry with
// the earliest creation time is evicted first; updating an existing key
// never evicts.
func (m *Manager) SetWithTTL(ns, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.opts.DefaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	space := m.loadLocked(ns)
	if _, exists := space[key]; !exists {
		for len(space) >= m.opts.MaxEntriesPerNamespace {
			m.evictOldestLocked(space)
		}
	}
	space[key] = entry{
		Value:     value,
		CreatedAt: m.now().UnixMilli(),
		TTLMs:     ttl.Milliseconds(),
	}
	m.persistLocked(ns)
}

// Delete removes key from namespace ns and reports whether it was present.
func (m *Manager) Delete(ns, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	space := m.loadLocked(ns)
	if _, ok := space[key]; !ok {
		return false
	}
	delete(space, key)
	m.persistLocked(ns)
	return true
}

// Clear empties namespace ns and removes its file.
func (m *Manager) Clear(ns string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked(ns)
}

// ClearAll empties every namespace, both in memory and on disk.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ns := range m.namespacesLocked() {
		m.clearLocked(ns)
	}
}

func (m *Manager) clearLocked(ns string) {
	m.spaces[ns] = map[string]entry{}
	m.loaded[ns] = struct{}{}
	if err := os.Remove(m.fileFor(ns)); err != nil && !os.IsNotExist(err) {
		logging.Debug("Cache", "failed to remove namespace file for %s: %v", ns, err)
	}
}

// Keys returns the live keys of namespace ns in sorted order.
func (m *Manager) Keys(ns string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	space := m.loadLocked(ns)
	m.pruneLocked(ns, space)
	keys := make([]string, 0, len(space))
	for k := range space {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size returns the number of live entries in namespace ns.
func (m *Manager) Size(ns string) int {
	return len(m.Keys(ns))
}

// Namespaces returns every known namespace, in memory or on disk, sorted.
func (m *Manager) Namespaces() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.namespacesLocked()
}

func (m *Manager) namespacesLocked() []string {
	seen := map[string]struct{}{}
	var names []string
	for ns := range m.spaces {
		seen[sanitizeNamespace(ns)] = struct{}{}
		names = append(names, ns)
	}

	if entries, err := os.ReadDir(m.opts.BaseDir); err == nil {
		for _, de := range entries {
			if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
				continue
			}
			stem := de.Name()[:len(de.Name())-len(".json")]
			if _, ok := seen[stem]; !ok {
				seen[stem] = struct{}{}
				names = append(names, stem)
			}
		}
	}

	sort.Strings(names)
	return names
}

// NamespaceStats summarizes one namespace for cache introspection.
type NamespaceStats struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
	Expired int    `json:"expired"`
}

// Stats summarizes the whole cache.
type Stats struct {
	BaseDir      string           `json:"baseDir"`
	Namespaces   []NamespaceStats `json:"namespaces"`
	TotalEntries int              `json:"totalEntries"`
	TotalExpired int              `json:"totalExpired"`
}

// Stats reports per-namespace entry counts without mutating anything;
// expired entries still on disk or in memory are counted separately.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{BaseDir: m.opts.BaseDir}
	now := m.now()
	for _, ns := range m.namespacesLocked() {
		space := m.loadLocked(ns)
		nsStats := NamespaceStats{Name: ns}
		for _, e := range space {
			if e.expired(now) {
				nsStats.Expired++
			} else {
				nsStats.Entries++
			}
		}
		stats.Namespaces = append(stats.Namespaces, nsStats)
		stats.TotalEntries += nsStats.Entries
		stats.TotalExpired += nsStats.Expired
	}
	return stats
}

// Cleanup removes expired entries from every namespace and persists the
// ones that changed. Called periodically by the background sweep.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ns := range m.namespacesLocked() {
		space := m.loadLocked(ns)
		m.pruneLocked(ns, space)
	}
}

// loadLocked returns the namespace map, reading its file on first touch.
// Unreadable or corrupt files yield an empty namespace.
func (m *Manager) loadLocked(ns string) map[string]entry {
	if _, ok := m.loaded[ns]; ok {
		return m.spaces[ns]
	}

	space := map[string]entry{}
	data, err := os.ReadFile(m.fileFor(ns))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &space); err != nil {
			logging.Debug("Cache", "ignoring corrupt namespace file for %s: %v", ns, err)
			space = map[string]entry{}
		}
	case !os.IsNotExist(err):
		logging.Debug("Cache", "failed to read namespace file for %s: %v", ns, err)
	}

	m.spaces[ns] = space
	m.loaded[ns] = struct{}{}
	return space
}

// persistLocked writes the namespace atomically via a temp file rename.
// Persistence failures are non-fatal; the in-memory view stays valid.
func (m *Manager) persistLocked(ns string) {
	if err := os.MkdirAll(m.opts.BaseDir, 0o755); err != nil {
		logging.Debug("Cache", "failed to create cache directory: %v", err)
		return
	}

	data, err := json.Marshal(m.spaces[ns])
	if err != nil {
		logging.Debug("Cache", "failed to encode namespace %s: %v", ns, err)
		return
	}

	tmp, err := os.CreateTemp(m.opts.BaseDir, sanitizeNamespace(ns)+"-*.tmp")
	if err != nil {
		logging.Debug("Cache", "failed to create temp file for %s: %v", ns, err)
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		logging.Debug("Cache", "failed to write namespace %s: %v", ns, err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		logging.Debug("Cache", "failed to close temp file for %s: %v", ns, err)
		return
	}
	if err := os.Rename(tmpName, m.fileFor(ns)); err != nil {
		os.Remove(tmpName)
		logging.Debug("Cache", "failed to replace namespace file for %s: %v", ns, err)
	}
}

func (m *Manager) pruneLocked(ns string, space map[string]entry) {
	now := m.now()
	removed := false
	for k, e := range space {
		if e.expired(now) {
			delete(space, k)
			removed = true
		}
	}
	if removed {
		m.persistLocked(ns)
	}
}

// evictOldestLocked drops the entry with the earliest creation time,
// breaking ties by key so eviction order is deterministic.
func (m *Manager) evictOldestLocked(space map[string]entry) {
	oldestKey := ""
	var oldestAt int64
	for k, e := range space {
		if oldestKey == "" || e.CreatedAt < oldestAt || (e.CreatedAt == oldestAt && k < oldestKey) {
			oldestKey = k
			oldestAt = e.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(space, oldestKey)
	}
}

func (m *Manager) fileFor(ns string) string {
	return filepath.Join(m.opts.BaseDir, sanitizeNamespace(ns)+".json")
}

var namespaceSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// sanitizeNamespace maps a namespace to a safe file stem. Namespaces such
// as "plugin:oauth2" become "plugin_oauth2".
func sanitizeNamespace(ns string) string {
	return namespaceSanitizer.ReplaceAllString(ns, "_")
}
