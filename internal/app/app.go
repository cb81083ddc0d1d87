// Package app bootstraps one httpcraft invocation: it loads the
// configuration, merges profiles, and wires the masker, cache, HTTP
// client, and global plugin set together for the command layer.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"httpcraft/internal/cache"
	"httpcraft/internal/cli"
	"httpcraft/internal/config"
	"httpcraft/internal/httpclient"
	"httpcraft/internal/plugin"
	"httpcraft/internal/template"
)

// Options configures one invocation.
type Options struct {
	// ConfigPath selects the configuration file; empty runs the default
	// search (./.httpcraft.yaml, ./.httpcraft.yml, then the user config
	// directory).
	ConfigPath string

	// Vars are --var overrides, the highest-precedence variable scope.
	Vars map[string]string

	// Profiles are the --profile flags in order. They apply after the
	// configuration's defaultProfile entries unless NoDefaultProfile is
	// set.
	Profiles         []string
	NoDefaultProfile bool

	Verbose bool
	DryRun  bool

	// Masker collects resolved secrets. The command layer shares it so
	// error output stays masked even when bootstrap fails halfway.
	Masker *template.Masker

	// Stderr receives diagnostics; defaults to os.Stderr.
	Stderr io.Writer
}

// App owns the subsystems of one invocation.
type App struct {
	Config  *config.Config
	Masker  *template.Masker
	Cache   *cache.Manager
	Client  *httpclient.Client
	Plugins *plugin.Manager
	Printer *cli.Printer

	engine  *template.Engine
	profile map[string]any
	opts    Options
}

// New bootstraps an application: configuration first, then the profile
// merge, cache, HTTP client, and the global plugin set. The caller must
// Close the returned App.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Masker == nil {
		opts.Masker = template.NewMasker()
	}

	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	profile, err := mergedProfile(cfg, opts.Profiles, opts.NoDefaultProfile)
	if err != nil {
		return nil, err
	}

	printer := &cli.Printer{Out: opts.Stderr, Masker: opts.Masker, Verbose: opts.Verbose}
	client := httpclient.New(httpclient.DefaultTimeout)
	client.SetTrace(printer.Trace())

	cacheManager := cache.NewManager(cache.Options{})

	plugins := plugin.NewManager(plugin.DefaultRegistry(), cacheManager, cfg.Dir)
	plugins.SetMasker(opts.Masker)

	app := &App{
		Config:  cfg,
		Masker:  opts.Masker,
		Cache:   cacheManager,
		Client:  client,
		Plugins: plugins,
		Printer: printer,
		engine:  template.New(),
		profile: profile,
		opts:    opts,
	}

	if err := plugins.LoadGlobal(ctx, cfg.Plugins, app.varContext(nil, nil)); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Close stops background resources. Safe to call more than once.
func (a *App) Close() {
	if a.Cache != nil {
		a.Cache.Stop()
	}
}

// Profile returns the merged profile variables for this invocation.
func (a *App) Profile() map[string]any {
	return a.profile
}

// LoadConfig loads the configuration from path, or from the default
// search locations when path is empty. Commands that only inspect the
// configuration use this directly instead of a full App.
func LoadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// mergedProfile flattens the selected profiles into one variable map.
// Later profiles override earlier ones key by key; defaultProfile entries
// come first unless suppressed.
func mergedProfile(cfg *config.Config, requested []string, noDefault bool) (map[string]any, error) {
	var names []string
	if !noDefault {
		names = append(names, cfg.Settings.DefaultProfile.Values()...)
	}
	names = append(names, requested...)

	merged := map[string]any{}
	for _, name := range names {
		profile, ok := cfg.Profiles[name]
		if !ok {
			return nil, fmt.Errorf("profile %q is not defined in the configuration", name)
		}
		for key, value := range profile.Variables() {
			merged[key] = value
		}
	}
	return merged, nil
}

// varContext assembles the layered variable scopes for one resolution
// site. Chain runs build their own context per step; this covers single
// requests and plugin loading.
func (a *App) varContext(endpointVars, apiVars map[string]any) *template.Context {
	return &template.Context{
		CLI:      a.opts.Vars,
		Endpoint: endpointVars,
		API:      apiVars,
		Profile:  a.profile,
		Global:   a.Config.GlobalVariables,
		Plugins:  a.Plugins,
		Masker:   a.Masker,
	}
}
