package oauth2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalConfig() map[string]any {
	return map[string]any{
		"tokenUrl": "https://auth.example.com/token",
		"clientId": "cli-123",
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(minimalConfig())
	require.NoError(t, err)

	assert.Equal(t, grantClientCredentials, cfg.GrantType)
	assert.Equal(t, authMethodPost, cfg.AuthMethod)
	assert.True(t, cfg.UsePKCE)
	assert.Equal(t, "S256", cfg.CodeChallengeMethod)
	assert.Equal(t, 8080, cfg.CallbackPort)
	assert.Equal(t, "/callback", cfg.CallbackPath)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, storageAuto, cfg.TokenStorage)
	assert.Nil(t, cfg.Interactive)
}

func TestParseConfig_AllKeys(t *testing.T) {
	raw := minimalConfig()
	raw["grantType"] = "authorization_code"
	raw["clientSecret"] = "s3cr3t"
	raw["authorizationUrl"] = "https://auth.example.com/authorize"
	raw["scope"] = "read write"
	raw["audience"] = "https://api.example.com"
	raw["authMethod"] = "basic"
	raw["usePKCE"] = false
	raw["callbackPort"] = 9000
	raw["callbackPath"] = "/oauth/done"
	raw["additionalParams"] = map[string]any{"prompt": "consent", "max_age": 300}
	raw["timeout"] = 5000
	raw["cacheKey"] = "my-key"
	raw["tokenStorage"] = "memory"
	raw["interactive"] = false

	cfg, err := parseConfig(raw)
	require.NoError(t, err)

	assert.Equal(t, grantAuthorizationCode, cfg.GrantType)
	assert.Equal(t, "s3cr3t", cfg.ClientSecret)
	assert.Equal(t, authMethodBasic, cfg.AuthMethod)
	assert.False(t, cfg.UsePKCE)
	assert.Equal(t, 9000, cfg.CallbackPort)
	assert.Equal(t, "/oauth/done", cfg.CallbackPath)
	assert.Equal(t, map[string]string{"prompt": "consent", "max_age": "300"}, cfg.AdditionalParams)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "my-key", cfg.CacheKey)
	assert.Equal(t, storageMemory, cfg.TokenStorage)
	require.NotNil(t, cfg.Interactive)
	assert.False(t, *cfg.Interactive)
}

func TestParseConfig_StringifiedScalars(t *testing.T) {
	raw := minimalConfig()
	raw["callbackPort"] = "8085"
	raw["usePKCE"] = "false"
	raw["timeout"] = "1000"

	cfg, err := parseConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, 8085, cfg.CallbackPort)
	assert.False(t, cfg.UsePKCE)
	assert.Equal(t, time.Second, cfg.Timeout)
}

func TestParseConfig_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(map[string]any)
		message string
	}{
		{"missing tokenUrl", func(m map[string]any) { delete(m, "tokenUrl") }, "tokenUrl is required"},
		{"missing clientId", func(m map[string]any) { delete(m, "clientId") }, "clientId is required"},
		{"bad grantType", func(m map[string]any) { m["grantType"] = "implicit" }, "unsupported grantType"},
		{"bad authMethod", func(m map[string]any) { m["authMethod"] = "header" }, "authMethod"},
		{"bad challenge method", func(m map[string]any) { m["codeChallengeMethod"] = "S512" }, "codeChallengeMethod"},
		{"bad tokenStorage", func(m map[string]any) { m["tokenStorage"] = "redis" }, "tokenStorage"},
		{"zero timeout", func(m map[string]any) { m["timeout"] = 0 }, "timeout must be positive"},
		{"refresh grant without token", func(m map[string]any) { m["grantType"] = "refresh_token" }, "requires a refreshToken"},
		{"structured scalar", func(m map[string]any) { m["scope"] = []any{"read"} }, "scope must be a scalar"},
		{"bad additionalParams", func(m map[string]any) { m["additionalParams"] = "nope" }, "must be a mapping"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := minimalConfig()
			tc.mutate(raw)
			_, err := parseConfig(raw)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestCacheKey_StableAcrossCalls(t *testing.T) {
	cfg, err := parseConfig(minimalConfig())
	require.NoError(t, err)

	first := cfg.cacheKeyFor("read")
	second := cfg.cacheKeyFor("read")
	assert.Equal(t, first, second)
	assert.Len(t, first, 32)
}

func TestCacheKey_DistinctPerScope(t *testing.T) {
	cfg, err := parseConfig(minimalConfig())
	require.NoError(t, err)

	assert.NotEqual(t, cfg.cacheKeyFor("read"), cfg.cacheKeyFor("write"))
	assert.NotEqual(t, cfg.cacheKeyFor(""), cfg.cacheKeyFor("read"))
}

func TestCacheKey_DistinctPerClient(t *testing.T) {
	a, err := parseConfig(minimalConfig())
	require.NoError(t, err)
	rawB := minimalConfig()
	rawB["clientId"] = "cli-456"
	b, err := parseConfig(rawB)
	require.NoError(t, err)

	assert.NotEqual(t, a.cacheKeyFor(""), b.cacheKeyFor(""))
}

func TestCacheKey_ExplicitKeyWins(t *testing.T) {
	raw := minimalConfig()
	raw["cacheKey"] = "pinned"
	cfg, err := parseConfig(raw)
	require.NoError(t, err)

	assert.Equal(t, "pinned", cfg.cacheKeyFor(""))
}
