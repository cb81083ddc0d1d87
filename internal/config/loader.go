package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"httpcraft/pkg/logging"
)

const (
	userConfigDir  = "httpcraft"
	configFileName = "config.yaml"
)

// Load reads the YAML file at path, expands modular imports for the apis,
// chains, and profiles sections, merges variable files, and validates the
// result.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, newConfigError(path, "", "", "cannot resolve path: %v", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, newConfigError(abs, "", "", "cannot read file: %v", err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, newConfigError(abs, "", "", "invalid YAML: %v", err)
	}

	cfg := &Config{
		Settings:      raw.Config,
		Secrets:       raw.Secrets,
		Plugins:       raw.Plugins,
		VariableFiles: raw.Variables,
		Path:          abs,
		Dir:           filepath.Dir(abs),
	}

	if cfg.APIs, err = expandSection[APIDefinition](&raw.APIs, cfg.Dir, abs, "apis", replaceKey); err != nil {
		return nil, err
	}
	if cfg.Chains, err = expandSection[ChainDefinition](&raw.Chains, cfg.Dir, abs, "chains", replaceKey); err != nil {
		return nil, err
	}
	if cfg.Profiles, err = expandSection[Profile](&raw.Profiles, cfg.Dir, abs, "profiles", mergeProfileKey); err != nil {
		return nil, err
	}
	if cfg.GlobalVariables, err = loadVariableFiles(raw.Variables, raw.GlobalVariables, cfg.Dir); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	logging.Debug("Config", "loaded configuration from %s (%d apis, %d chains, %d profiles)",
		abs, len(cfg.APIs), len(cfg.Chains), len(cfg.Profiles))
	return cfg, nil
}

// osUserHomeDir is swappable for tests.
var osUserHomeDir = os.UserHomeDir

// DefaultPath returns the first existing default configuration file:
// ./.httpcraft.yaml, ./.httpcraft.yml, then
// $XDG_CONFIG_HOME/httpcraft/config.yaml with $HOME/.config standing in
// when XDG_CONFIG_HOME is unset. ErrNoDefaultConfig when none exists.
func DefaultPath() (string, error) {
	for _, candidate := range []string{".httpcraft.yaml", ".httpcraft.yml"} {
		if fileExists(candidate) {
			return filepath.Abs(candidate)
		}
	}

	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := osUserHomeDir()
		if err != nil {
			return "", ErrNoDefaultConfig
		}
		base = filepath.Join(home, ".config")
	}
	candidate := filepath.Join(base, userConfigDir, configFileName)
	if fileExists(candidate) {
		return candidate, nil
	}

	return "", ErrNoDefaultConfig
}

// LoadDefault loads the configuration from the default search locations.
func LoadDefault() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// resolvePath resolves a possibly relative path against baseDir.
func resolvePath(path, baseDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
