package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const directoryPrefix = "directory:"

// mergeFunc folds one imported entry into the accumulated section map.
type mergeFunc[T any] func(dst map[string]T, key string, value T)

// replaceKey is the last-write-wins strategy used for apis and chains.
func replaceKey[T any](dst map[string]T, key string, value T) {
	dst[key] = value
}

// mergeProfileKey merges profiles per inner key so that a later file can
// override a single variable without discarding the rest of the profile.
func mergeProfileKey(dst map[string]Profile, key string, value Profile) {
	existing, ok := dst[key]
	if !ok {
		dst[key] = value
		return
	}
	for k, v := range value {
		existing[k] = v
	}
	dst[key] = existing
}

// expandSection decodes a section that is either an inline mapping of
// name to definition or a sequence of import specs pointing at files that
// each contain such a mapping.
func expandSection[T any](node *yaml.Node, baseDir, file, section string, merge mergeFunc[T]) (map[string]T, error) {
	if node == nil || node.Kind == 0 {
		return nil, nil
	}

	switch node.Kind {
	case yaml.MappingNode:
		out := map[string]T{}
		if err := node.Decode(&out); err != nil {
			return nil, newConfigError(file, section, "", "invalid mapping: %v", err)
		}
		return out, nil

	case yaml.SequenceNode:
		var specs []string
		if err := node.Decode(&specs); err != nil {
			return nil, newConfigError(file, section, "", "import list must contain strings: %v", err)
		}
		paths, err := resolveImportSpecs(specs, baseDir, file, section)
		if err != nil {
			return nil, err
		}
		out := map[string]T{}
		for _, path := range paths {
			entries, err := loadSectionFile[T](path, section)
			if err != nil {
				return nil, err
			}
			keys := make([]string, 0, len(entries))
			for k := range entries {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				merge(out, k, entries[k])
			}
		}
		return out, nil

	default:
		return nil, newConfigError(file, section, "", "must be a mapping or a list of imports")
	}
}

// resolveImportSpecs expands each spec into concrete file paths. A
// "directory:" spec lists the directory's *.yaml and *.yml files in
// lexicographic order without recursing; any other spec is a file path.
// Relative paths are resolved against the importing file's directory.
func resolveImportSpecs(specs []string, baseDir, file, section string) ([]string, error) {
	var paths []string
	for _, spec := range specs {
		if dir, ok := strings.CutPrefix(spec, directoryPrefix); ok {
			dirPath := resolvePath(dir, baseDir)
			entries, err := os.ReadDir(dirPath)
			if err != nil {
				return nil, newConfigError(file, section, "", "cannot read import directory %q: %v", dir, err)
			}
			var names []string
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				ext := filepath.Ext(entry.Name())
				if ext == ".yaml" || ext == ".yml" {
					names = append(names, entry.Name())
				}
			}
			sort.Strings(names)
			for _, name := range names {
				paths = append(paths, filepath.Join(dirPath, name))
			}
			continue
		}
		paths = append(paths, resolvePath(spec, baseDir))
	}
	return paths, nil
}

// loadSectionFile reads one imported file holding a mapping of name to
// definition for the given section.
func loadSectionFile[T any](path, section string) (map[string]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newConfigError(path, section, "", "cannot read imported file: %v", err)
	}
	out := map[string]T{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, newConfigError(path, section, "", "invalid YAML: %v", err)
	}
	return out, nil
}
