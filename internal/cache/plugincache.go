package cache

import "time"

// PluginCache gives one plugin a private namespace on the shared manager.
// The namespace is "plugin:<name>" so plugin entries never collide with
// each other or with application namespaces.
type PluginCache struct {
	manager   *Manager
	namespace string
}

// PluginCache binds a namespace for the named plugin.
func (m *Manager) PluginCache(pluginName string) *PluginCache {
	return &PluginCache{manager: m, namespace: "plugin:" + pluginName}
}

// Namespace returns the bound namespace name.
func (p *PluginCache) Namespace() string {
	return p.namespace
}

func (p *PluginCache) Get(key string) (any, bool) {
	return p.manager.Get(p.namespace, key)
}

func (p *PluginCache) Has(key string) bool {
	return p.manager.Has(p.namespace, key)
}

func (p *PluginCache) Set(key string, value any) {
	p.manager.Set(p.namespace, key, value)
}

func (p *PluginCache) SetWithTTL(key string, value any, ttl time.Duration) {
	p.manager.SetWithTTL(p.namespace, key, value, ttl)
}

func (p *PluginCache) Delete(key string) bool {
	return p.manager.Delete(p.namespace, key)
}

func (p *PluginCache) Clear() {
	p.manager.Clear(p.namespace)
}

func (p *PluginCache) Keys() []string {
	return p.manager.Keys(p.namespace)
}

func (p *PluginCache) Size() int {
	return p.manager.Size(p.namespace)
}
