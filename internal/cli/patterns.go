package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// StatusPattern matches HTTP status codes: the class patterns 4xx and
// 5xx, or one exact code.
type StatusPattern struct {
	class int
	exact int
}

// ParseStatusPatterns parses a comma-separated --exit-on-http-error
// specification such as "4xx,503". Patterns may overlap.
func ParseStatusPatterns(spec string) ([]StatusPattern, error) {
	var patterns []StatusPattern
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch strings.ToLower(part) {
		case "4xx":
			patterns = append(patterns, StatusPattern{class: 4})
			continue
		case "5xx":
			patterns = append(patterns, StatusPattern{class: 5})
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil || code < 100 || code > 599 {
			return nil, fmt.Errorf("invalid status pattern %q: use 4xx, 5xx, or an exact status code", part)
		}
		patterns = append(patterns, StatusPattern{exact: code})
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no status patterns in %q", spec)
	}
	return patterns, nil
}

// Matches reports whether the pattern covers the status.
func (p StatusPattern) Matches(status int) bool {
	if p.class != 0 {
		return status/100 == p.class
	}
	return status == p.exact
}

// AnyStatusMatch reports whether any pattern covers the status.
func AnyStatusMatch(patterns []StatusPattern, status int) bool {
	for _, pattern := range patterns {
		if pattern.Matches(status) {
			return true
		}
	}
	return false
}
