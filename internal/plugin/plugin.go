package plugin

import (
	"httpcraft/internal/cache"
	"httpcraft/internal/httpclient"
	"httpcraft/internal/template"
)

// Plugin is a loadable extension. Setup runs once per instance and
// registers hooks, variable sources, and secret resolvers through the
// setup context.
type Plugin interface {
	Setup(ctx *SetupContext) error
}

// SetupContext is handed to a plugin's Setup. Registrations are recorded
// in call order on the owning instance.
type SetupContext struct {
	// Name is the configured plugin name, as referenced from
	// plugins.<name>.<variable> templates.
	Name string

	// Config is the effective configuration for this instance, with all
	// templates already resolved.
	Config map[string]any

	// ConfigDir is the directory of the loaded configuration file, for
	// resolving relative paths.
	ConfigDir string

	// Cache is a namespace on the shared cache manager private to this
	// plugin name. Nil when the application runs without a cache.
	Cache *cache.PluginCache

	// Masker is the invocation's secret masker. Plugins that obtain
	// credentials at runtime must Track them here. Never nil.
	Masker *template.Masker

	instance *instance
}

// RegisterPreRequestHook adds a hook that runs before every request.
func (sc *SetupContext) RegisterPreRequestHook(hook httpclient.PreRequestHook) {
	sc.instance.preHooks = append(sc.instance.preHooks, hook)
}

// RegisterPostResponseHook adds a hook that runs after every response.
func (sc *SetupContext) RegisterPostResponseHook(hook httpclient.PostResponseHook) {
	sc.instance.postHooks = append(sc.instance.postHooks, hook)
}

// RegisterVariableSource exposes a value as plugins.<plugin>.<name>.
func (sc *SetupContext) RegisterVariableSource(name string, source template.VariableSource) {
	if sc.instance.varSources == nil {
		sc.instance.varSources = map[string]template.VariableSource{}
	}
	sc.instance.varSources[name] = source
}

// RegisterParameterizedVariableSource exposes a function callable as
// plugins.<plugin>.<name>(args...).
func (sc *SetupContext) RegisterParameterizedVariableSource(name string, source template.ParameterizedSource) {
	if sc.instance.paramSources == nil {
		sc.instance.paramSources = map[string]template.ParameterizedSource{}
	}
	sc.instance.paramSources[name] = source
}

// RegisterSecretResolver adds a resolver consulted for secret.* variables.
func (sc *SetupContext) RegisterSecretResolver(resolver template.SecretResolver) {
	sc.instance.secretResolvers = append(sc.instance.secretResolvers, resolver)
}
