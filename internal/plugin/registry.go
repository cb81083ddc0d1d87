package plugin

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"httpcraft/internal/config"
)

// npmPluginPrefix is stripped from package names so that a package
// published as httpcraft-plugin-oauth2 registers under "oauth2".
const npmPluginPrefix = "httpcraft-plugin-"

// Factory creates a fresh plugin instance. Each configuration of a plugin
// gets its own instance so API-level overrides never share state with the
// global one.
type Factory func() Plugin

// Registry maps implementation names to factories. Implementations are
// compiled in and register themselves from init functions; configuration
// selects them through the path or npmPackage it declares.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds a factory under the given implementation name. Later
// registrations replace earlier ones.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Lookup returns the factory for an implementation name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[name]
	return factory, ok
}

// Names returns the registered implementation names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry that built-in plugins
// register with.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a factory to the default registry.
func Register(name string, factory Factory) {
	defaultRegistry.Register(name, factory)
}

// implementationKey derives the registry key from a plugin declaration:
// the file stem for path-based plugins, the final package segment without
// the conventional prefix for npm-style names.
func implementationKey(def config.PluginDefinition) string {
	if def.Path != "" {
		base := filepath.Base(def.Path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	segments := strings.Split(def.NPMPackage, "/")
	last := segments[len(segments)-1]
	return strings.TrimPrefix(last, npmPluginPrefix)
}
