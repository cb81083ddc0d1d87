package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"httpcraft/internal/config"
	"httpcraft/internal/httpclient"
	"httpcraft/internal/template"
)

// scriptedPlugin runs the given function as its setup.
type scriptedPlugin struct {
	setup func(sc *SetupContext) error
}

func (p *scriptedPlugin) Setup(sc *SetupContext) error {
	if p.setup == nil {
		return nil
	}
	return p.setup(sc)
}

func registerScripted(r *Registry, implKey string, setup func(sc *SetupContext) error) {
	r.Register(implKey, func() Plugin { return &scriptedPlugin{setup: setup} })
}

func pathDef(name string, cfg map[string]any) config.PluginDefinition {
	return config.PluginDefinition{Name: name, Path: "./plugins/" + name + ".js", Config: cfg}
}

func TestLoadGlobal_ExposesRegistrations(t *testing.T) {
	registry := NewRegistry()
	registerScripted(registry, "auth", func(sc *SetupContext) error {
		sc.RegisterPreRequestHook(func(ctx context.Context, req *httpclient.Request) error {
			req.SetHeader("X-Auth", "yes")
			return nil
		})
		sc.RegisterPostResponseHook(func(ctx context.Context, resp *httpclient.Response) error {
			return nil
		})
		sc.RegisterVariableSource("token", func(ctx context.Context) (string, error) {
			return "tok", nil
		})
		sc.RegisterParameterizedVariableSource("scopedToken", func(ctx context.Context, args ...string) (string, error) {
			return "tok:" + args[0], nil
		})
		sc.RegisterSecretResolver(func(ctx context.Context, name string) (string, bool, error) {
			return "", false, nil
		})
		return nil
	})

	m := NewManager(registry, nil, t.TempDir())
	vars := &template.Context{}
	err := m.LoadGlobal(context.Background(), []config.PluginDefinition{pathDef("auth", nil)}, vars)
	require.NoError(t, err)

	assert.Len(t, m.PreRequestHooks(), 1)
	assert.Len(t, m.PostResponseHooks(), 1)
	assert.Len(t, m.SecretResolvers(), 1)
	require.Contains(t, m.VariableSources(), "auth")
	assert.Contains(t, m.VariableSources()["auth"], "token")
	require.Contains(t, m.ParameterizedSources(), "auth")
	assert.Contains(t, m.ParameterizedSources()["auth"], "scopedToken")

	handle, ok := vars.Plugins.(*Manager)
	require.True(t, ok, "loading must install the manager as the context's plugin handle")
	assert.Same(t, m, handle)
}

func TestLoadGlobal_TwoPassOrder(t *testing.T) {
	registry := NewRegistry()
	var order []string

	registerScripted(registry, "plain", func(sc *SetupContext) error {
		order = append(order, sc.Name)
		return nil
	})
	registerScripted(registry, "vault", func(sc *SetupContext) error {
		order = append(order, sc.Name)
		sc.RegisterSecretResolver(func(ctx context.Context, name string) (string, bool, error) {
			if name == "API_TOKEN" {
				return "s3cr3t", true, nil
			}
			return "", false, nil
		})
		return nil
	})
	var consumerConfig map[string]any
	registerScripted(registry, "consumer", func(sc *SetupContext) error {
		order = append(order, sc.Name)
		consumerConfig = sc.Config
		return nil
	})

	// Declared with the consumer first: the two-pass load must still put
	// the placeholder-free plugin first and the provider before it.
	defs := []config.PluginDefinition{
		pathDef("consumer", map[string]any{"token": "{{secret.API_TOKEN}}"}),
		pathDef("vault-secrets", map[string]any{"secretMapping": map[string]any{"API_TOKEN": "x"}}),
		pathDef("plain", map[string]any{"mode": "simple"}),
	}
	defs[1].Path = "./plugins/vault.js"

	m := NewManager(registry, nil, t.TempDir())
	err := m.LoadGlobal(context.Background(), defs, &template.Context{})
	require.NoError(t, err)

	assert.Equal(t, []string{"plain", "vault-secrets", "consumer"}, order)
	require.NotNil(t, consumerConfig)
	assert.Equal(t, "s3cr3t", consumerConfig["token"], "consumer config resolves through the provider's resolver")
}

func TestLoadGlobal_ProviderByName(t *testing.T) {
	assert.True(t, isSecretProvider(config.PluginDefinition{Name: "corp-vault"}))
	assert.True(t, isSecretProvider(config.PluginDefinition{Name: "SecretStore"}))
	assert.True(t, isSecretProvider(config.PluginDefinition{Name: "keystore-x"}))
	assert.True(t, isSecretProvider(config.PluginDefinition{
		Name:   "custom",
		Config: map[string]any{"inner": map[string]any{"secretMapping": "x"}},
	}))
	assert.False(t, isSecretProvider(config.PluginDefinition{Name: "oauth2"}))
}

func TestLoadGlobal_UnknownImplementation(t *testing.T) {
	m := NewManager(NewRegistry(), nil, t.TempDir())
	err := m.LoadGlobal(context.Background(), []config.PluginDefinition{pathDef("ghost", nil)}, &template.Context{})

	var pluginErr *PluginError
	require.ErrorAs(t, err, &pluginErr)
	assert.Equal(t, "ghost", pluginErr.Plugin)
	assert.Contains(t, pluginErr.Message, "no implementation")
}

func TestLoadGlobal_SetupFailure(t *testing.T) {
	registry := NewRegistry()
	registerScripted(registry, "broken", func(sc *SetupContext) error {
		return errors.New("cannot reach key server")
	})

	m := NewManager(registry, nil, t.TempDir())
	err := m.LoadGlobal(context.Background(), []config.PluginDefinition{pathDef("broken", nil)}, &template.Context{})

	var pluginErr *PluginError
	require.ErrorAs(t, err, &pluginErr)
	assert.Contains(t, pluginErr.Error(), "cannot reach key server")
}

func TestForAPI_ReusesIdenticalConfiguration(t *testing.T) {
	registry := NewRegistry()
	setups := 0
	registerScripted(registry, "auth", func(sc *SetupContext) error {
		setups++
		return nil
	})

	m := NewManager(registry, nil, t.TempDir())
	defs := []config.PluginDefinition{pathDef("auth", map[string]any{"mode": "simple"})}
	require.NoError(t, m.LoadGlobal(context.Background(), defs, &template.Context{}))
	require.Equal(t, 1, setups)

	derived, err := m.ForAPI(context.Background(), []config.PluginReference{
		{Name: "auth", Config: map[string]any{"mode": "simple"}},
	}, &template.Context{})
	require.NoError(t, err)

	assert.Equal(t, 1, setups, "identical merged config must reuse the global instance")
	assert.Same(t, m.instances[0], derived.instances[0])
}

func TestForAPI_OverrideCreatesScopedInstance(t *testing.T) {
	registry := NewRegistry()
	var configs []map[string]any
	registerScripted(registry, "auth", func(sc *SetupContext) error {
		configs = append(configs, sc.Config)
		return nil
	})
	registerScripted(registry, "logger", func(sc *SetupContext) error { return nil })

	m := NewManager(registry, nil, t.TempDir())
	defs := []config.PluginDefinition{
		pathDef("auth", map[string]any{"mode": "simple", "timeout": "30"}),
		pathDef("logger", nil),
	}
	require.NoError(t, m.LoadGlobal(context.Background(), defs, &template.Context{}))

	derived, err := m.ForAPI(context.Background(), []config.PluginReference{
		{Name: "auth", Config: map[string]any{"mode": "strict"}},
	}, &template.Context{})
	require.NoError(t, err)

	require.Len(t, configs, 2)
	assert.Equal(t, map[string]any{"mode": "strict", "timeout": "30"}, configs[1],
		"api config overlays the global config shallowly")

	// The untouched plugin keeps its global slot; the overridden one moves
	// to the api section of the order.
	assert.Equal(t, []string{"logger", "auth"}, derived.InstanceNames())
	assert.Equal(t, []string{"auth", "logger"}, m.InstanceNames(), "the global manager is untouched")
}

func TestForAPI_ResolvesReferenceTemplates(t *testing.T) {
	registry := NewRegistry()
	var got map[string]any
	registerScripted(registry, "auth", func(sc *SetupContext) error {
		got = sc.Config
		return nil
	})

	m := NewManager(registry, nil, t.TempDir())
	require.NoError(t, m.LoadGlobal(context.Background(),
		[]config.PluginDefinition{pathDef("auth", map[string]any{"tenant": "none"})}, &template.Context{}))

	vars := &template.Context{API: map[string]any{"tenantId": "acme"}, Plugins: m}
	_, err := m.ForAPI(context.Background(), []config.PluginReference{
		{Name: "auth", Config: map[string]any{"tenant": "{{tenantId}}"}},
	}, vars)
	require.NoError(t, err)
	assert.Equal(t, "acme", got["tenant"])
}

func TestForAPI_UnknownName(t *testing.T) {
	m := NewManager(NewRegistry(), nil, t.TempDir())
	_, err := m.ForAPI(context.Background(), []config.PluginReference{{Name: "ghost"}}, &template.Context{})

	var pluginErr *PluginError
	require.ErrorAs(t, err, &pluginErr)
	assert.Equal(t, "ghost", pluginErr.Plugin)
}

func TestForAPI_NoRefsReturnsGlobalManager(t *testing.T) {
	m := NewManager(NewRegistry(), nil, t.TempDir())
	derived, err := m.ForAPI(context.Background(), nil, &template.Context{})
	require.NoError(t, err)
	assert.Same(t, m, derived)
}

func TestHookFailuresCarryPluginName(t *testing.T) {
	registry := NewRegistry()
	registerScripted(registry, "auth", func(sc *SetupContext) error {
		sc.RegisterPreRequestHook(func(ctx context.Context, req *httpclient.Request) error {
			return errors.New("expired refresh token")
		})
		return nil
	})

	m := NewManager(registry, nil, t.TempDir())
	require.NoError(t, m.LoadGlobal(context.Background(),
		[]config.PluginDefinition{pathDef("auth", nil)}, &template.Context{}))

	hooks := m.PreRequestHooks()
	require.Len(t, hooks, 1)
	err := hooks[0](context.Background(), &httpclient.Request{})

	var pluginErr *PluginError
	require.ErrorAs(t, err, &pluginErr)
	assert.Equal(t, "auth", pluginErr.Plugin)
	assert.Contains(t, pluginErr.Error(), "expired refresh token")
}

func TestImplementationKey(t *testing.T) {
	assert.Equal(t, "oauth2",
		implementationKey(config.PluginDefinition{Path: "./plugins/oauth2.js"}))
	assert.Equal(t, "customAuth",
		implementationKey(config.PluginDefinition{Path: "/abs/dir/customAuth.mjs"}))
	assert.Equal(t, "oauth2",
		implementationKey(config.PluginDefinition{NPMPackage: "httpcraft-plugin-oauth2"}))
	assert.Equal(t, "vault",
		implementationKey(config.PluginDefinition{NPMPackage: "@corp/httpcraft-plugin-vault"}))
	assert.Equal(t, "standalone",
		implementationKey(config.PluginDefinition{NPMPackage: "standalone"}))
}
