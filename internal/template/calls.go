package template

import (
	"context"
	"fmt"
	"strings"
)

// pluginCall is a parsed plugins.<plugin>.<function>(args...) expression.
type pluginCall struct {
	plugin string
	fn     string
	args   []callArg
	site   string
}

// callArg is one argument token: either a quoted literal or a nested
// template resolved in the caller's context before invocation.
type callArg struct {
	literal  string
	template string
	quoted   bool
}

// parseCall attempts to parse expr as a parameterized call. The second
// return is false when expr has no call shape at all (no parenthesis),
// letting the caller fall back to plain resolution.
func parseCall(expr string) (*pluginCall, bool, error) {
	open := strings.IndexByte(expr, '(')
	if open < 0 {
		return nil, false, nil
	}
	if !strings.HasSuffix(expr, ")") {
		return nil, true, fmt.Errorf("unterminated argument list")
	}

	head := expr[:open]
	parts := strings.Split(head, ".")
	if len(parts) != 3 || parts[0] != "plugins" {
		return nil, true, fmt.Errorf("function calls use the form plugins.<plugin>.<function>(...)")
	}
	if !isIdent(parts[1]) || !isIdent(parts[2]) {
		return nil, true, fmt.Errorf("invalid plugin or function name in %q", head)
	}

	args, err := parseArgs(expr[open+1 : len(expr)-1])
	if err != nil {
		return nil, true, err
	}
	return &pluginCall{plugin: parts[1], fn: parts[2], args: args, site: expr}, true, nil
}

// isIdent accepts letters, digits, underscore, and interior hyphens
// (plugin names may be kebab-case).
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9' || r == '-':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// parseArgs scans a comma-separated argument list. Tokens are either
// double-quoted strings (with \" and \\ escapes) or {{...}} templates;
// commas inside quotes are literal.
func parseArgs(s string) ([]callArg, error) {
	var args []callArg
	i, n := 0, len(s)
	skipSpace := func() {
		for i < n && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
	}

	skipSpace()
	if i >= n {
		return nil, nil
	}
	for {
		skipSpace()
		if i >= n {
			return nil, fmt.Errorf("trailing comma in argument list")
		}
		switch {
		case s[i] == '"':
			lit, next, err := scanQuoted(s, i)
			if err != nil {
				return nil, err
			}
			args = append(args, callArg{literal: lit, quoted: true})
			i = next
		case strings.HasPrefix(s[i:], "{{"):
			tpl, next, err := scanTemplate(s, i)
			if err != nil {
				return nil, err
			}
			args = append(args, callArg{template: tpl})
			i = next
		default:
			return nil, fmt.Errorf("argument %d must be a quoted string or a {{...}} template", len(args)+1)
		}
		skipSpace()
		if i >= n {
			return args, nil
		}
		if s[i] != ',' {
			return nil, fmt.Errorf("expected ',' between arguments")
		}
		i++
	}
}

func scanQuoted(s string, start int) (string, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
			b.WriteByte(s[i+1])
			i += 2
			continue
		}
		if c == '"' {
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, fmt.Errorf("unterminated string literal")
}

func scanTemplate(s string, start int) (string, int, error) {
	depth := 0
	i := start
	for i < len(s)-1 {
		switch {
		case s[i] == '{' && s[i+1] == '{':
			depth++
			i += 2
		case s[i] == '}' && s[i+1] == '}':
			depth--
			i += 2
			if depth == 0 {
				return s[start:i], i, nil
			}
		default:
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated template in argument list")
}

// evaluateCall resolves the arguments and invokes the registered
// parameterized source. Failures name the full call site.
func (e *Engine) evaluateCall(ctx context.Context, c *pluginCall, vars *Context) (string, error) {
	if vars == nil || vars.Plugins == nil {
		return "", undefinedErr(c.site, "no plugins loaded")
	}
	fn, ok := vars.Plugins.ParameterizedSources()[c.plugin][c.fn]
	if !ok {
		return "", undefinedErr(c.site, "plugin %q has no parameterized variable source %q", c.plugin, c.fn)
	}

	resolved := make([]string, len(c.args))
	for idx, a := range c.args {
		if a.quoted {
			resolved[idx] = a.literal
			continue
		}
		val, err := e.Resolve(ctx, a.template, vars)
		if err != nil {
			return "", err
		}
		resolved[idx] = val
	}

	out, err := fn(ctx, resolved...)
	if err != nil {
		return "", resolutionErr(c.site, "call failed: %v", err)
	}
	return out, nil
}
