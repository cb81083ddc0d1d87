package template

import (
	"context"
)

// VariableSource produces the value of a plugin-registered variable.
type VariableSource func(ctx context.Context) (string, error)

// ParameterizedSource produces a value from resolved string arguments.
type ParameterizedSource func(ctx context.Context, args ...string) (string, error)

// SecretResolver maps a secret name to its value. ok reports whether the
// resolver knows the name at all; resolvers that do not are skipped.
type SecretResolver func(ctx context.Context, name string) (value string, ok bool, err error)

// PluginSources is the resolver's view of the loaded plugins. The plugin
// manager implements it and hands the context a fresh handle after each
// load so that later resolutions see earlier registrations.
type PluginSources interface {
	VariableSources() map[string]map[string]VariableSource
	ParameterizedSources() map[string]map[string]ParameterizedSource
	SecretResolvers() []SecretResolver
}

// Context carries the layered variable scopes for one request or chain
// step. Precedence for unscoped names, high to low: CLI overrides,
// step.with pathParams, endpoint variables, API variables, chain vars,
// merged profile, global variables. Environment and plugin variables are
// reachable only through their env. and plugins. prefixes.
type Context struct {
	CLI      map[string]string
	StepWith map[string]string
	Endpoint map[string]any
	API      map[string]any
	Chain    map[string]any
	Profile  map[string]any
	Global   map[string]any

	Plugins PluginSources
	Steps   map[string]*StepState
	Masker  *Masker
}

// lookupUnscoped walks the scope chain for a bare name.
func (c *Context) lookupUnscoped(name string) (any, bool) {
	if c == nil {
		return nil, false
	}
	if v, ok := c.CLI[name]; ok {
		return v, true
	}
	if v, ok := c.StepWith[name]; ok {
		return v, true
	}
	for _, scope := range []map[string]any{c.Endpoint, c.API, c.Chain, c.Profile, c.Global} {
		if v, ok := scope[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// track records a resolved secret when a masker is attached.
func (c *Context) track(secret string) {
	if c != nil && c.Masker != nil {
		c.Masker.Track(secret)
	}
}
