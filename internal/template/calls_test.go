package template

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joiningSource() ParameterizedSource {
	return func(_ context.Context, args ...string) (string, error) {
		return strings.Join(args, "|"), nil
	}
}

func TestParseCall_NotACall(t *testing.T) {
	_, isCall, err := parseCall("plugins.vault.token")
	assert.False(t, isCall)
	assert.NoError(t, err)
}

func TestParseCall_Simple(t *testing.T) {
	call, isCall, err := parseCall(`plugins.vault.lookup("secret/db")`)
	require.True(t, isCall)
	require.NoError(t, err)
	assert.Equal(t, "vault", call.plugin)
	assert.Equal(t, "lookup", call.fn)
	require.Len(t, call.args, 1)
	assert.True(t, call.args[0].quoted)
	assert.Equal(t, "secret/db", call.args[0].literal)
}

func TestParseCall_NoArgs(t *testing.T) {
	call, isCall, err := parseCall("plugins.p.now()")
	require.True(t, isCall)
	require.NoError(t, err)
	assert.Empty(t, call.args)
}

func TestParseCall_TemplateArg(t *testing.T) {
	call, isCall, err := parseCall(`plugins.p.f({{name}}, "lit")`)
	require.True(t, isCall)
	require.NoError(t, err)
	require.Len(t, call.args, 2)
	assert.Equal(t, "{{name}}", call.args[0].template)
	assert.Equal(t, "lit", call.args[1].literal)
}

func TestParseCall_QuotedCommaAndEscapes(t *testing.T) {
	call, isCall, err := parseCall(`plugins.p.f("a,b", "say \"hi\"", "back\\slash")`)
	require.True(t, isCall)
	require.NoError(t, err)
	require.Len(t, call.args, 3)
	assert.Equal(t, "a,b", call.args[0].literal)
	assert.Equal(t, `say "hi"`, call.args[1].literal)
	assert.Equal(t, `back\slash`, call.args[2].literal)
}

func TestParseCall_Malformed(t *testing.T) {
	tests := []string{
		`plugins.p.f("unterminated`,
		`plugins.p.f(bare)`,
		`plugins.p.f("a",)`,
		`other.p.f("a")`,
		`plugins.f("a")`,
		`plugins.p.f("a"`,
	}
	for _, expr := range tests {
		_, isCall, err := parseCall(expr)
		assert.True(t, isCall, expr)
		assert.Error(t, err, expr)
	}
}

func TestResolve_ParameterizedCall(t *testing.T) {
	e := New()
	vars := &Context{
		Global: map[string]any{"name": "db"},
		Plugins: &fakeSources{params: map[string]map[string]ParameterizedSource{
			"vault": {"lookup": joiningSource()},
		}},
	}

	out, err := e.Resolve(context.Background(), `{{plugins.vault.lookup("secret/", {{name}})}}`, vars)
	require.NoError(t, err)
	assert.Equal(t, "secret/|db", out)
}

func TestResolve_ParameterizedCall_WithWhitespace(t *testing.T) {
	e := New()
	vars := &Context{
		Plugins: &fakeSources{params: map[string]map[string]ParameterizedSource{
			"p": {"f": joiningSource()},
		}},
	}

	out, err := e.Resolve(context.Background(), `{{ plugins.p.f( "a" , "b" ) }}`, vars)
	require.NoError(t, err)
	assert.Equal(t, "a|b", out)
}

func TestResolve_ParameterizedCall_FnError(t *testing.T) {
	e := New()
	vars := &Context{
		Plugins: &fakeSources{params: map[string]map[string]ParameterizedSource{
			"p": {"f": func(_ context.Context, _ ...string) (string, error) {
				return "", fmt.Errorf("upstream unavailable")
			}},
		}},
	}

	_, err := e.Resolve(context.Background(), `{{plugins.p.f("x")}}`, vars)
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.False(t, resErr.Undefined)
	// The error names the full call site
	assert.Contains(t, resErr.Name, `plugins.p.f("x")`)
	assert.Contains(t, resErr.Reason, "upstream unavailable")
}

func TestResolve_ParameterizedCall_UnknownFunction(t *testing.T) {
	e := New()
	vars := &Context{Plugins: &fakeSources{}}

	_, err := e.Resolve(context.Background(), `{{plugins.p.nope("x")}}`, vars)
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.True(t, resErr.Undefined)
}

func TestResolve_ParameterizedCall_MalformedIsError(t *testing.T) {
	e := New()
	vars := &Context{Plugins: &fakeSources{}}

	_, err := e.Resolve(context.Background(), `{{plugins.p.f(bare)}}`, vars)
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.False(t, resErr.Undefined)
	assert.Contains(t, resErr.Reason, "malformed function call")
}
