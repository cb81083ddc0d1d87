package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/itchyny/gojq"
)

// bodyPathPattern validates the supported body query subset: dot-separated
// fields with optional bracketed non-negative integer indexes, for example
// "data.items[0].id". Wildcards, slices, filters, and recursive descent do
// not match and are rejected before compilation.
var bodyPathPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\[\d+\])*(\.[A-Za-z_][A-Za-z0-9_]*(\[\d+\])*)*$`)

// evalBodyPath runs a validated path query against a parsed body. found is
// false when the path yields nothing, which includes null results and
// type-mismatched traversals such as indexing into a scalar.
func evalBodyPath(body any, path string) (any, bool, error) {
	trimmed := strings.TrimPrefix(path, "$.")
	if !bodyPathPattern.MatchString(trimmed) {
		return nil, false, fmt.Errorf("unsupported body path %q (only dot fields and [index] are allowed)", path)
	}

	query, err := gojq.Parse("." + trimmed)
	if err != nil {
		return nil, false, fmt.Errorf("invalid body path %q: %w", path, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, false, fmt.Errorf("invalid body path %q: %w", path, err)
	}

	normalized, err := normalizeForQuery(body)
	if err != nil {
		return nil, false, err
	}

	iter := code.Run(normalized)
	v, ok := iter.Next()
	if !ok {
		return nil, false, nil
	}
	if _, isErr := v.(error); isErr {
		return nil, false, nil
	}
	if v == nil {
		return nil, false, nil
	}
	return v, true, nil
}

// normalizeForQuery round-trips a value through JSON so the query engine
// sees only the types it supports regardless of which decoder produced the
// value.
func normalizeForQuery(v any) (any, error) {
	switch v.(type) {
	case nil, bool, string, int, float64:
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("body is not JSON-representable: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
