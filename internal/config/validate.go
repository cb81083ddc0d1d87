package config

import (
	"regexp"
	"sort"
	"strings"
)

var (
	baseURLPattern = regexp.MustCompile(`^https?://`)
	callPattern    = regexp.MustCompile(`^[^.]+\.[^.]+$`)
)

var allowedMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "DELETE": {},
	"PATCH": {}, "HEAD": {}, "OPTIONS": {},
}

// validate checks the fully expanded configuration and returns the first
// problem found as a ConfigError naming the offending file and key.
func validate(cfg *Config) error {
	if err := validatePlugins(cfg); err != nil {
		return err
	}
	for _, name := range sortedKeys(cfg.APIs) {
		if err := validateAPI(cfg, name, cfg.APIs[name]); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(cfg.Chains) {
		if err := validateChain(cfg, name, cfg.Chains[name]); err != nil {
			return err
		}
	}
	return nil
}

func validatePlugins(cfg *Config) error {
	seen := map[string]struct{}{}
	for i, def := range cfg.Plugins {
		if def.Name == "" {
			return newConfigError(cfg.Path, "plugins", "", "plugin at index %d has no name", i)
		}
		if _, dup := seen[def.Name]; dup {
			return newConfigError(cfg.Path, "plugins", def.Name, "plugin name declared more than once")
		}
		seen[def.Name] = struct{}{}
		hasPath := def.Path != ""
		hasPackage := def.NPMPackage != ""
		if hasPath == hasPackage {
			return newConfigError(cfg.Path, "plugins", def.Name, "exactly one of path or npmPackage is required")
		}
	}
	return nil
}

func validateAPI(cfg *Config, name string, api APIDefinition) error {
	if api.BaseURL == "" {
		return newConfigError(cfg.Path, "apis", name, "baseUrl is required")
	}
	if !baseURLPattern.MatchString(api.BaseURL) {
		return newConfigError(cfg.Path, "apis", name, "baseUrl %q must start with http:// or https://", api.BaseURL)
	}
	if len(api.Endpoints) == 0 {
		return newConfigError(cfg.Path, "apis", name, "at least one endpoint is required")
	}

	declared := map[string]struct{}{}
	for _, def := range cfg.Plugins {
		declared[def.Name] = struct{}{}
	}
	for _, ref := range api.Plugins {
		key := name + ".plugins." + ref.Name
		if ref.Name == "" {
			return newConfigError(cfg.Path, "apis", name+".plugins", "plugin reference has no name")
		}
		if _, ok := declared[ref.Name]; !ok {
			return newConfigError(cfg.Path, "apis", key, "plugin is not declared at the global level")
		}
		if ref.Path != "" || ref.NPMPackage != "" {
			return newConfigError(cfg.Path, "apis", key, "api-level plugin references carry only name and config")
		}
	}

	for _, epName := range sortedKeys(api.Endpoints) {
		ep := api.Endpoints[epName]
		key := name + "." + epName
		if ep.Method == "" {
			return newConfigError(cfg.Path, "apis", key, "method is required")
		}
		if _, ok := allowedMethods[strings.ToUpper(ep.Method)]; !ok {
			return newConfigError(cfg.Path, "apis", key, "method %q is not a valid HTTP method", ep.Method)
		}
		if ep.Path == "" {
			return newConfigError(cfg.Path, "apis", key, "path is required")
		}
	}
	return nil
}

func validateChain(cfg *Config, name string, chain ChainDefinition) error {
	seen := map[string]struct{}{}
	for i, step := range chain.Steps {
		if step.ID == "" {
			return newConfigError(cfg.Path, "chains", name, "step at index %d has no id", i)
		}
		if _, dup := seen[step.ID]; dup {
			return newConfigError(cfg.Path, "chains", name+"."+step.ID, "step id used more than once")
		}
		seen[step.ID] = struct{}{}
		if !callPattern.MatchString(step.Call) {
			return newConfigError(cfg.Path, "chains", name+"."+step.ID, "call %q must have the form apiName.endpointName", step.Call)
		}
	}
	return nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
