package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"httpcraft/pkg/logging"
)

// Engine expands {{ ... }} placeholders against a layered Context.
//
// A placeholder holds a single expression: a dynamic $name, a scoped name
// (env., profile., api., endpoint., secret., steps., plugins.), a
// parameterized plugin call, or a bare name looked up across the scope
// chain. A trailing ? marks the occurrence optional: undefined names
// resolve to the empty string instead of failing.
type Engine struct{}

// New creates a new template engine.
func New() *Engine {
	return &Engine{}
}

// placeholder is one {{ ... }} occurrence in a string.
type placeholder struct {
	start, end int
	expr       string
	optional   bool
}

// findPlaceholders scans s for top-level {{ ... }} spans. Call arguments
// may nest {{...}} templates and quote literal braces, so the scan is
// depth- and quote-aware rather than a flat regular expression.
func findPlaceholders(s string) ([]placeholder, error) {
	var spans []placeholder
	i, n := 0, len(s)
	for i < n-1 {
		if s[i] != '{' || s[i+1] != '{' {
			i++
			continue
		}
		start := i
		depth := 1
		j := i + 2
		inQuote := false
		for j < n && depth > 0 {
			if inQuote {
				if s[j] == '\\' && j+1 < n {
					j += 2
					continue
				}
				if s[j] == '"' {
					inQuote = false
				}
				j++
				continue
			}
			switch {
			case s[j] == '"':
				inQuote = true
				j++
			case j+1 < n && s[j] == '{' && s[j+1] == '{':
				depth++
				j += 2
			case j+1 < n && s[j] == '}' && s[j+1] == '}':
				depth--
				j += 2
			default:
				j++
			}
		}
		if depth != 0 {
			return nil, fmt.Errorf("unterminated placeholder at offset %d", start)
		}

		inner := strings.TrimSpace(s[start+2 : j-2])
		optional := false
		if strings.HasSuffix(inner, "?") {
			optional = true
			inner = strings.TrimSpace(strings.TrimSuffix(inner, "?"))
		}
		spans = append(spans, placeholder{start: start, end: j, expr: inner, optional: optional})
		i = j
	}
	return spans, nil
}

// Resolve expands every placeholder in template and returns the spliced
// string. Optional placeholders that do not resolve become empty.
func (e *Engine) Resolve(ctx context.Context, template string, vars *Context) (string, error) {
	s, _, err := e.resolveTracking(ctx, template, vars)
	return s, err
}

// resolveTracking additionally reports whether the whole string was a
// single optional placeholder that did not resolve, which header and
// param builders use to drop the enclosing entry.
func (e *Engine) resolveTracking(ctx context.Context, template string, vars *Context) (string, bool, error) {
	spans, err := findPlaceholders(template)
	if err != nil {
		return "", false, resolutionErr(template, "%v", err)
	}
	if len(spans) == 0 {
		return template, false, nil
	}

	var b strings.Builder
	last := 0
	droppedWhole := false
	for _, ph := range spans {
		b.WriteString(template[last:ph.start])
		last = ph.end

		val, err := e.resolveExpression(ctx, ph.expr, vars)
		if err != nil {
			var resErr *ResolutionError
			if ph.optional && errors.As(err, &resErr) && resErr.Undefined {
				if len(spans) == 1 && strings.TrimSpace(template) == template[ph.start:ph.end] {
					droppedWhole = true
				}
				continue
			}
			return "", false, err
		}
		b.WriteString(val)
	}
	b.WriteString(template[last:])
	return b.String(), droppedWhole, nil
}

// resolveExpression resolves a single placeholder expression.
func (e *Engine) resolveExpression(ctx context.Context, expr string, vars *Context) (string, error) {
	if expr == "" {
		return "", resolutionErr("{{}}", "empty placeholder")
	}

	if strings.HasPrefix(expr, "$") {
		return resolveDynamic(expr)
	}

	if call, isCall, err := parseCall(expr); isCall {
		if err != nil {
			return "", resolutionErr(expr, "malformed function call: %v", err)
		}
		return e.evaluateCall(ctx, call, vars)
	}

	if scope, rest, found := strings.Cut(expr, "."); found {
		switch scope {
		case "env":
			if v, ok := os.LookupEnv(rest); ok {
				return v, nil
			}
			return "", undefinedErr(expr, "environment variable %q is not set", rest)
		case "profile":
			return lookupScope(expr, "profile", rest, scopeMap(vars, func(c *Context) map[string]any { return c.Profile }))
		case "api":
			return lookupScope(expr, "API", rest, scopeMap(vars, func(c *Context) map[string]any { return c.API }))
		case "endpoint":
			return lookupScope(expr, "endpoint", rest, scopeMap(vars, func(c *Context) map[string]any { return c.Endpoint }))
		case "secret":
			return e.resolveSecret(ctx, expr, rest, vars)
		case "steps":
			return vars.resolveStepPath(expr)
		case "plugins":
			return e.resolvePluginVariable(ctx, expr, rest, vars)
		}
	}

	if v, ok := vars.lookupUnscoped(expr); ok {
		return stringify(v), nil
	}
	return "", undefinedErr(expr, "variable is not defined in any scope")
}

func scopeMap(vars *Context, pick func(*Context) map[string]any) map[string]any {
	if vars == nil {
		return nil
	}
	return pick(vars)
}

func lookupScope(fullName, scopeName, key string, m map[string]any) (string, error) {
	if v, ok := m[key]; ok {
		return stringify(v), nil
	}
	return "", undefinedErr(fullName, "%s variable %q is not defined", scopeName, key)
}

// resolveSecret iterates registered secret resolvers in order, falling back
// to the process environment. Resolved values are tracked for masking.
func (e *Engine) resolveSecret(ctx context.Context, fullName, name string, vars *Context) (string, error) {
	if vars != nil && vars.Plugins != nil {
		for _, resolver := range vars.Plugins.SecretResolvers() {
			value, ok, err := resolver(ctx, name)
			if err != nil {
				logging.Debug("Template", "secret resolver failed for %s: %v", name, err)
				continue
			}
			if ok {
				vars.track(value)
				return value, nil
			}
		}
	}
	if value, ok := os.LookupEnv(name); ok {
		vars.track(value)
		return value, nil
	}
	return "", undefinedErr(fullName, "secret %q not provided by any resolver or the environment", name)
}

func (e *Engine) resolvePluginVariable(ctx context.Context, fullName, rest string, vars *Context) (string, error) {
	pluginName, varName, found := strings.Cut(rest, ".")
	if !found {
		return "", resolutionErr(fullName, "plugin variables use the form plugins.<plugin>.<name>")
	}
	if vars == nil || vars.Plugins == nil {
		return "", undefinedErr(fullName, "no plugins loaded")
	}
	src, ok := vars.Plugins.VariableSources()[pluginName][varName]
	if !ok {
		return "", undefinedErr(fullName, "plugin %q has no variable source %q", pluginName, varName)
	}
	value, err := src(ctx)
	if err != nil {
		return "", resolutionErr(fullName, "variable source failed: %v", err)
	}
	return value, nil
}

// ResolveValue walks maps and slices, resolving every string leaf.
// Non-string scalars pass through unchanged.
func (e *Engine) ResolveValue(ctx context.Context, value any, vars *Context) (any, error) {
	switch v := value.(type) {
	case string:
		return e.Resolve(ctx, v, vars)
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			resolved, err := e.ResolveValue(ctx, val, vars)
			if err != nil {
				return nil, fmt.Errorf("error in key %q: %w", key, err)
			}
			result[key] = resolved
		}
		return result, nil
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			resolved, err := e.ResolveValue(ctx, val, vars)
			if err != nil {
				return nil, fmt.Errorf("error at index %d: %w", i, err)
			}
			result[i] = resolved
		}
		return result, nil
	default:
		return value, nil
	}
}

// ResolveWithOptional resolves a string-valued mapping (headers, params)
// and omits keys whose entire value was a single optional placeholder that
// did not resolve. The omitted keys are returned sorted for diagnostics.
func (e *Engine) ResolveWithOptional(ctx context.Context, entries map[string]any, vars *Context) (map[string]string, []string, error) {
	if len(entries) == 0 {
		return nil, nil, nil
	}
	resolved := make(map[string]string, len(entries))
	var excluded []string
	for key, value := range entries {
		s, ok := value.(string)
		if !ok {
			out, err := e.ResolveValue(ctx, value, vars)
			if err != nil {
				return nil, nil, fmt.Errorf("error in key %q: %w", key, err)
			}
			resolved[key] = stringify(out)
			continue
		}
		out, dropped, err := e.resolveTracking(ctx, s, vars)
		if err != nil {
			return nil, nil, fmt.Errorf("error in key %q: %w", key, err)
		}
		if dropped {
			excluded = append(excluded, key)
			continue
		}
		resolved[key] = out
	}
	sort.Strings(excluded)
	return resolved, excluded, nil
}

// ExtractVariables returns the distinct placeholder expressions found
// anywhere in value, sorted.
func (e *Engine) ExtractVariables(value any) []string {
	seen := make(map[string]bool)
	extractVariables(value, seen)

	result := make([]string, 0, len(seen))
	for name := range seen {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

func extractVariables(value any, seen map[string]bool) {
	switch v := value.(type) {
	case string:
		spans, err := findPlaceholders(v)
		if err != nil {
			return
		}
		for _, ph := range spans {
			seen[ph.expr] = true
		}
	case map[string]any:
		for _, val := range v {
			extractVariables(val, seen)
		}
	case []any:
		for _, val := range v {
			extractVariables(val, seen)
		}
	}
}

// HasPlaceholders reports whether any string nested in value contains a
// template placeholder. The plugin manager partitions plugin configs with
// this during the two-pass global load.
func HasPlaceholders(value any) bool {
	switch v := value.(type) {
	case string:
		spans, err := findPlaceholders(v)
		return err == nil && len(spans) > 0
	case map[string]any:
		for _, val := range v {
			if HasPlaceholders(val) {
				return true
			}
		}
	case []any:
		for _, val := range v {
			if HasPlaceholders(val) {
				return true
			}
		}
	}
	return false
}

// Stringify renders a value exactly the way placeholder splicing does:
// compact numbers, lowercase booleans, JSON for structured values.
func Stringify(v any) string {
	return stringify(v)
}

// stringify renders a resolved value for splicing into a string.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case nil:
		return ""
	default:
		if raw, err := json.Marshal(t); err == nil {
			return string(raw)
		}
		return fmt.Sprintf("%v", t)
	}
}
