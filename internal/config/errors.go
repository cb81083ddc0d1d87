package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoDefaultConfig reports that none of the default configuration
// locations contained a file.
var ErrNoDefaultConfig = errors.New("no default configuration file found")

// ConfigError describes an invalid or unloadable configuration. File names
// the offending file; Section and Key narrow the location when known.
type ConfigError struct {
	File    string
	Section string
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("invalid configuration")
	if e.File != "" {
		fmt.Fprintf(&b, " in %s", e.File)
	}
	loc := e.Section
	if e.Key != "" {
		if loc != "" {
			loc += "."
		}
		loc += e.Key
	}
	if loc != "" {
		fmt.Fprintf(&b, ": %s", loc)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	return b.String()
}

func newConfigError(file, section, key, msgFmt string, args ...interface{}) *ConfigError {
	return &ConfigError{
		File:    file,
		Section: section,
		Key:     key,
		Message: fmt.Sprintf(msgFmt, args...),
	}
}
