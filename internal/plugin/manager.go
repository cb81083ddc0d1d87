package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"httpcraft/internal/cache"
	"httpcraft/internal/config"
	"httpcraft/internal/httpclient"
	"httpcraft/internal/template"
	"httpcraft/pkg/logging"
)

// instance is one loaded plugin with everything its setup registered.
type instance struct {
	name    string
	implKey string
	config  map[string]any

	preHooks        []httpclient.PreRequestHook
	postHooks       []httpclient.PostResponseHook
	varSources      map[string]template.VariableSource
	paramSources    map[string]template.ParameterizedSource
	secretResolvers []template.SecretResolver
}

// Manager owns loaded plugin instances and exposes their aggregate hook,
// variable, and secret-resolver views. The global manager is built once
// per invocation; API-scoped managers derive from it.
type Manager struct {
	registry  *Registry
	cache     *cache.Manager
	engine    *template.Engine
	configDir string
	masker    *template.Masker

	instances []*instance
	byName    map[string]*instance
}

// NewManager creates a manager that instantiates plugins from registry
// and hands each a namespace on cacheManager. cacheManager may be nil.
func NewManager(registry *Registry, cacheManager *cache.Manager, configDir string) *Manager {
	return &Manager{
		registry:  registry,
		cache:     cacheManager,
		engine:    template.New(),
		configDir: configDir,
		byName:    map[string]*instance{},
	}
}

// SetMasker hands plugins the masker that secret values must be tracked
// in. Call before LoadGlobal.
func (m *Manager) SetMasker(masker *template.Masker) {
	m.masker = masker
}

// LoadGlobal loads every configured plugin in two passes so plugins can
// reference secrets provided by other plugins: configurations without
// placeholders first, then secret providers, then the remaining
// consumers. vars gains this manager as its plugin-source handle so each
// load sees the resolvers registered before it.
func (m *Manager) LoadGlobal(ctx context.Context, defs []config.PluginDefinition, vars *template.Context) error {
	if vars != nil {
		vars.Plugins = m
	}

	var plain, providers, consumers []config.PluginDefinition
	for _, def := range defs {
		switch {
		case !template.HasPlaceholders(def.Config):
			plain = append(plain, def)
		case isSecretProvider(def):
			providers = append(providers, def)
		default:
			consumers = append(consumers, def)
		}
	}

	ordered := make([]config.PluginDefinition, 0, len(defs))
	ordered = append(ordered, plain...)
	ordered = append(ordered, providers...)
	ordered = append(ordered, consumers...)

	for _, def := range ordered {
		inst, err := m.loadInstance(ctx, def.Name, implementationKey(def), def.Config, vars)
		if err != nil {
			return err
		}
		m.instances = append(m.instances, inst)
		m.byName[def.Name] = inst
		logging.Debug("PluginManager", "loaded plugin %s (implementation %s)", def.Name, inst.implKey)
	}
	return nil
}

// ForAPI derives a manager for one API's plugin list. Entries whose
// merged configuration is identical to the global one reuse the global
// instance in place; entries that differ get a fresh instance appended
// after all global instances, in list order. refs resolve against vars as
// it stands when called.
func (m *Manager) ForAPI(ctx context.Context, refs []config.PluginReference, vars *template.Context) (*Manager, error) {
	if len(refs) == 0 {
		return m, nil
	}

	derived := &Manager{
		registry:  m.registry,
		cache:     m.cache,
		engine:    m.engine,
		configDir: m.configDir,
		masker:    m.masker,
		byName:    map[string]*instance{},
	}

	replaced := map[string]*instance{}
	var appended []*instance
	for _, ref := range refs {
		global, ok := m.byName[ref.Name]
		if !ok {
			return nil, pluginErr(ref.Name, "not declared in the global plugin list")
		}

		resolvedRef, err := m.resolveConfig(ctx, ref.Name, ref.Config, vars)
		if err != nil {
			return nil, err
		}
		merged := overlayConfig(global.config, resolvedRef)
		if sameConfig(merged, global.config) {
			continue
		}

		inst, err := m.newInstance(global.name, global.implKey, merged)
		if err != nil {
			return nil, err
		}
		if _, dup := replaced[ref.Name]; dup {
			for i, existing := range appended {
				if existing.name == ref.Name {
					appended[i] = inst
				}
			}
		} else {
			appended = append(appended, inst)
		}
		replaced[ref.Name] = inst
		logging.Debug("PluginManager", "created api-scoped instance of plugin %s", ref.Name)
	}

	for _, inst := range m.instances {
		if _, moved := replaced[inst.name]; moved {
			continue
		}
		derived.instances = append(derived.instances, inst)
		derived.byName[inst.name] = inst
	}
	for _, inst := range appended {
		derived.instances = append(derived.instances, inst)
		derived.byName[inst.name] = inst
	}
	return derived, nil
}

// InstanceNames returns loaded plugin names in hook order.
func (m *Manager) InstanceNames() []string {
	names := make([]string, 0, len(m.instances))
	for _, inst := range m.instances {
		names = append(names, inst.name)
	}
	return names
}

func (m *Manager) loadInstance(ctx context.Context, name, implKey string, rawConfig map[string]any, vars *template.Context) (*instance, error) {
	resolved, err := m.resolveConfig(ctx, name, rawConfig, vars)
	if err != nil {
		return nil, err
	}
	return m.newInstance(name, implKey, resolved)
}

func (m *Manager) newInstance(name, implKey string, resolvedConfig map[string]any) (*instance, error) {
	factory, ok := m.registry.Lookup(implKey)
	if !ok {
		return nil, pluginErr(name, "no implementation registered for %q", implKey)
	}

	inst := &instance{name: name, implKey: implKey, config: resolvedConfig}
	masker := m.masker
	if masker == nil {
		masker = template.NewMasker()
	}
	sc := &SetupContext{
		Name:      name,
		Config:    resolvedConfig,
		ConfigDir: m.configDir,
		Masker:    masker,
		instance:  inst,
	}
	if m.cache != nil {
		sc.Cache = m.cache.PluginCache(name)
	}
	if err := factory().Setup(sc); err != nil {
		return nil, wrapPluginErr(name, err, "setup failed")
	}
	return inst, nil
}

func (m *Manager) resolveConfig(ctx context.Context, name string, rawConfig map[string]any, vars *template.Context) (map[string]any, error) {
	if rawConfig == nil {
		return map[string]any{}, nil
	}
	resolved, err := m.engine.ResolveValue(ctx, rawConfig, vars)
	if err != nil {
		return nil, wrapPluginErr(name, err, "resolving configuration")
	}
	resolvedMap, ok := resolved.(map[string]any)
	if !ok {
		return nil, pluginErr(name, "configuration must be a mapping")
	}
	return resolvedMap, nil
}

// PreRequestHooks returns every registered pre-request hook in instance
// order, each wrapped so failures carry the plugin name.
func (m *Manager) PreRequestHooks() []httpclient.PreRequestHook {
	var hooks []httpclient.PreRequestHook
	for _, inst := range m.instances {
		name := inst.name
		for _, hook := range inst.preHooks {
			h := hook
			hooks = append(hooks, func(ctx context.Context, req *httpclient.Request) error {
				if err := h(ctx, req); err != nil {
					return wrapPluginErr(name, err, "pre-request hook failed")
				}
				return nil
			})
		}
	}
	return hooks
}

// PostResponseHooks returns every registered post-response hook in
// instance order.
func (m *Manager) PostResponseHooks() []httpclient.PostResponseHook {
	var hooks []httpclient.PostResponseHook
	for _, inst := range m.instances {
		name := inst.name
		for _, hook := range inst.postHooks {
			h := hook
			hooks = append(hooks, func(ctx context.Context, resp *httpclient.Response) error {
				if err := h(ctx, resp); err != nil {
					return wrapPluginErr(name, err, "post-response hook failed")
				}
				return nil
			})
		}
	}
	return hooks
}

// VariableSources maps plugin name to its registered variable sources.
func (m *Manager) VariableSources() map[string]map[string]template.VariableSource {
	out := map[string]map[string]template.VariableSource{}
	for _, inst := range m.instances {
		if len(inst.varSources) > 0 {
			out[inst.name] = inst.varSources
		}
	}
	return out
}

// ParameterizedSources maps plugin name to its registered parameterized
// sources.
func (m *Manager) ParameterizedSources() map[string]map[string]template.ParameterizedSource {
	out := map[string]map[string]template.ParameterizedSource{}
	for _, inst := range m.instances {
		if len(inst.paramSources) > 0 {
			out[inst.name] = inst.paramSources
		}
	}
	return out
}

// SecretResolvers returns all secret resolvers in registration order.
func (m *Manager) SecretResolvers() []template.SecretResolver {
	var resolvers []template.SecretResolver
	for _, inst := range m.instances {
		resolvers = append(resolvers, inst.secretResolvers...)
	}
	return resolvers
}

// isSecretProvider applies the provider heuristic: the configuration
// carries a secretMapping, or the plugin name suggests a secret store.
func isSecretProvider(def config.PluginDefinition) bool {
	if _, ok := def.Config["secretMapping"]; ok {
		return true
	}
	if data, err := json.Marshal(def.Config); err == nil && bytes.Contains(data, []byte(`"secretMapping"`)) {
		return true
	}
	lower := strings.ToLower(def.Name)
	for _, marker := range []string{"secret", "vault", "keystore"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func overlayConfig(base, overlay map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

// sameConfig compares configurations through their canonical JSON
// encoding, which sorts mapping keys.
func sameConfig(a, b map[string]any) bool {
	aJSON, errA := json.Marshal(a)
	bJSON, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aJSON, bJSON)
}
