package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// loadVariableFiles merges the referenced variable files into a single map.
// Files are applied in order with later files overriding earlier ones, and
// variables declared inline under globalVariables override all files.
func loadVariableFiles(files []string, inline map[string]any, baseDir string) (map[string]any, error) {
	if len(files) == 0 {
		return inline, nil
	}

	merged := map[string]any{}
	for _, file := range files {
		path := resolvePath(file, baseDir)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, newConfigError(path, "variables", "", "cannot read variable file: %v", err)
		}
		vars := map[string]any{}
		if err := yaml.Unmarshal(data, &vars); err != nil {
			return nil, newConfigError(path, "variables", "", "invalid YAML: %v", err)
		}
		for key, value := range vars {
			if !isPrimitive(value) {
				return nil, newConfigError(path, "variables", key, "variable files must contain flat string, number, or boolean values")
			}
			merged[key] = value
		}
	}

	for key, value := range inline {
		merged[key] = value
	}
	return merged, nil
}

func isPrimitive(value any) bool {
	switch value.(type) {
	case string, bool, int, int64, uint64, float64, nil:
		return true
	default:
		return false
	}
}
