package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config is the effective configuration for one invocation, after modular
// imports have been expanded and variable files merged. Path and Dir locate
// the loaded file so that relative imports and plugin paths can be resolved
// against it.
type Config struct {
	Settings        Settings
	Profiles        map[string]Profile
	Secrets         SecretsConfig
	Plugins         []PluginDefinition
	VariableFiles   []string
	GlobalVariables map[string]any
	APIs            map[string]APIDefinition
	Chains          map[string]ChainDefinition

	Path string
	Dir  string
}

// rawConfig mirrors the YAML surface. The apis, chains, and profiles
// sections are kept as nodes because each accepts either an inline mapping
// or a list of import specifications.
type rawConfig struct {
	Config          Settings           `yaml:"config"`
	Profiles        yaml.Node          `yaml:"profiles"`
	Secrets         SecretsConfig      `yaml:"secrets"`
	Plugins         []PluginDefinition `yaml:"plugins"`
	Variables       []string           `yaml:"variables"`
	GlobalVariables map[string]any     `yaml:"globalVariables"`
	APIs            yaml.Node          `yaml:"apis"`
	Chains          yaml.Node          `yaml:"chains"`
}

// Settings holds the top-level config section.
type Settings struct {
	DefaultProfile StringOrList `yaml:"defaultProfile"`
}

// SecretsConfig selects the default secret provider.
type SecretsConfig struct {
	Provider string `yaml:"provider"`
}

// StringOrList accepts either a single scalar or a sequence of scalars.
type StringOrList []string

func (s *StringOrList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*s = StringOrList{single}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = StringOrList(list)
		return nil
	default:
		return fmt.Errorf("expected a string or a list of strings")
	}
}

// Values returns the entries as a plain slice, nil when unset.
func (s StringOrList) Values() []string {
	if len(s) == 0 {
		return nil
	}
	return []string(s)
}

// Profile is a flat mapping of primitive variables. The optional
// description key is surfaced by listing commands and skipped when
// profiles merge into the variable context.
type Profile map[string]any

// Description returns the profile's description key, if any.
func (p Profile) Description() string {
	if d, ok := p["description"].(string); ok {
		return d
	}
	return ""
}

// Variables returns the profile without its description key.
func (p Profile) Variables() map[string]any {
	vars := make(map[string]any, len(p))
	for k, v := range p {
		if k == "description" {
			continue
		}
		vars[k] = v
	}
	return vars
}

// PluginDefinition declares a plugin at global scope. Exactly one of Path
// or NPMPackage selects the implementation.
type PluginDefinition struct {
	Name       string         `yaml:"name"`
	Path       string         `yaml:"path"`
	NPMPackage string         `yaml:"npmPackage"`
	Config     map[string]any `yaml:"config"`
}

// PluginReference is an API-level plugin configuration override. Path and
// NPMPackage are parsed only so validation can reject them with a clear
// message; overrides carry name and config alone.
type PluginReference struct {
	Name       string         `yaml:"name"`
	Path       string         `yaml:"path"`
	NPMPackage string         `yaml:"npmPackage"`
	Config     map[string]any `yaml:"config"`
}

// APIDefinition groups endpoints sharing a base URL, headers, params, and
// variables. Header and param values stay as any until resolution so they
// may carry templates.
type APIDefinition struct {
	Description string                        `yaml:"description"`
	BaseURL     string                        `yaml:"baseUrl"`
	Headers     map[string]any                `yaml:"headers"`
	Params      map[string]any                `yaml:"params"`
	Variables   map[string]any                `yaml:"variables"`
	Plugins     []PluginReference             `yaml:"plugins"`
	Endpoints   map[string]EndpointDefinition `yaml:"endpoints"`
}

// EndpointDefinition is one method + path template under an API.
type EndpointDefinition struct {
	Method      string         `yaml:"method"`
	Path        string         `yaml:"path"`
	Description string         `yaml:"description"`
	Headers     map[string]any `yaml:"headers"`
	Params      map[string]any `yaml:"params"`
	Body        any            `yaml:"body"`
	Variables   map[string]any `yaml:"variables"`
}

// ChainDefinition is an ordered sequence of request steps.
type ChainDefinition struct {
	Description string         `yaml:"description"`
	Vars        map[string]any `yaml:"vars"`
	Steps       []ChainStep    `yaml:"steps"`
}

// ChainStep names one api.endpoint call with optional overrides.
type ChainStep struct {
	ID          string         `yaml:"id"`
	Call        string         `yaml:"call"`
	Description string         `yaml:"description"`
	With        *StepOverrides `yaml:"with"`
}

// StepOverrides carries per-step replacements applied over the endpoint's
// declared values.
type StepOverrides struct {
	PathParams map[string]any `yaml:"pathParams"`
	Headers    map[string]any `yaml:"headers"`
	Params     map[string]any `yaml:"params"`
	Body       any            `yaml:"body"`
}
