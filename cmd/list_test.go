package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inspectConfig = `
config:
  defaultProfile: dev
profiles:
  dev:
    host: dev.example.com
  prod:
    host: api.example.com
globalVariables:
  region: eu-west-1
apis:
  users:
    description: User service
    baseUrl: https://{{host}}
    endpoints:
      list:
        method: GET
        path: /users
      get:
        method: GET
        path: /users/{{userId}}
  billing:
    baseUrl: https://billing.example.com
    endpoints:
      invoices:
        method: GET
        path: /invoices
chains:
  audit:
    steps:
      - id: all
        call: users.list
`

func TestListAPIs(t *testing.T) {
	cfgPath := writeConfig(t, inspectConfig)

	out, _, err := runCommand(t, "list", "apis", "--config", cfgPath, "--json")
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "billing", items[0]["name"])
	assert.Equal(t, "users", items[1]["name"])
	assert.Equal(t, float64(2), items[1]["endpoints"])
}

func TestListEndpoints_OneAPI(t *testing.T) {
	cfgPath := writeConfig(t, inspectConfig)

	out, _, err := runCommand(t, "list", "endpoints", "users", "--config", cfgPath, "--json")
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "get", items[0]["name"])
	assert.NotContains(t, items[0], "api", "single-api listing omits the api column")
}

func TestListEndpoints_AllAPIs(t *testing.T) {
	cfgPath := writeConfig(t, inspectConfig)

	out, _, err := runCommand(t, "list", "endpoints", "--config", cfgPath, "--json")
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 3)
	assert.Equal(t, "billing", items[0]["api"])
	assert.Equal(t, "invoices", items[0]["name"])
	assert.Equal(t, "users", items[1]["api"])
	assert.Equal(t, "get", items[1]["name"])
}

func TestListEndpoints_UnknownAPI(t *testing.T) {
	cfgPath := writeConfig(t, inspectConfig)

	_, _, err := runCommand(t, "list", "endpoints", "payments", "--config", cfgPath)
	assert.EqualError(t, err, `api "payments" is not defined in the configuration`)
}

func TestListProfiles(t *testing.T) {
	cfgPath := writeConfig(t, inspectConfig)

	out, _, err := runCommand(t, "list", "profiles", "--config", cfgPath, "--json")
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "dev", items[0]["name"])
	assert.Equal(t, true, items[0]["default"])
	assert.Equal(t, false, items[1]["default"])
}

func TestListChains(t *testing.T) {
	cfgPath := writeConfig(t, inspectConfig)

	out, _, err := runCommand(t, "list", "chains", "--config", cfgPath, "--json")
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "audit", items[0]["name"])
	assert.Equal(t, float64(1), items[0]["steps"])
}

func TestListVariables(t *testing.T) {
	cfgPath := writeConfig(t, inspectConfig)

	out, _, err := runCommand(t, "list", "variables", "--config", cfgPath, "--json")
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "region", items[0]["name"])
	assert.Equal(t, "eu-west-1", items[0]["value"])
}

func TestDescribeAPI(t *testing.T) {
	cfgPath := writeConfig(t, inspectConfig)

	out, _, err := runCommand(t, "describe", "api", "users", "--config", cfgPath, "--json")
	require.NoError(t, err)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "users", view["name"])
	assert.Equal(t, "User service", view["description"])
	assert.Equal(t, "https://{{host}}", view["baseUrl"], "templates stay unresolved")
}

func TestDescribeEndpoint(t *testing.T) {
	cfgPath := writeConfig(t, inspectConfig)

	out, _, err := runCommand(t, "describe", "endpoint", "users", "get", "--config", cfgPath, "--json")
	require.NoError(t, err)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "users", view["api"])
	assert.Equal(t, "get", view["name"])
	assert.Equal(t, "/users/{{userId}}", view["path"])
}

func TestDescribeProfile(t *testing.T) {
	cfgPath := writeConfig(t, inspectConfig)

	out, _, err := runCommand(t, "describe", "profile", "prod", "--config", cfgPath, "--json")
	require.NoError(t, err)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "prod", view["name"])
	assert.Equal(t, false, view["default"])
	assert.Equal(t, map[string]any{"host": "api.example.com"}, view["variables"])
}

func TestDescribeChain(t *testing.T) {
	cfgPath := writeConfig(t, inspectConfig)

	out, _, err := runCommand(t, "describe", "chain", "audit", "--config", cfgPath, "--json")
	require.NoError(t, err)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "audit", view["name"])
	steps, ok := view["steps"].([]any)
	require.True(t, ok)
	require.Len(t, steps, 1)
}

func TestValidate(t *testing.T) {
	cfgPath := writeConfig(t, inspectConfig)

	out, _, err := runCommand(t, "validate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid: "+cfgPath)
	assert.Contains(t, out, "(2 apis, 1 chains, 2 profiles)")
}

func TestValidate_Invalid(t *testing.T) {
	cfgPath := writeConfig(t, `
apis:
  users:
    baseUrl: ftp://example.com
    endpoints:
      list:
        method: GET
        path: /users
`)

	_, _, err := runCommand(t, "validate", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "baseUrl")
}
