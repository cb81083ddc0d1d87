package oauth2

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"httpcraft/internal/template"
	"httpcraft/pkg/oauth"
)

const (
	grantClientCredentials = "client_credentials"
	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"

	authMethodBasic = "basic"
	authMethodPost  = "post"

	storageKeychain = "keychain"
	storageFile     = "file"
	storageMemory   = "memory"
	storageAuto     = "auto"
)

const (
	defaultCallbackPort = 8080
	defaultCallbackPath = "/callback"
	defaultTimeout      = 30 * time.Second
)

// Config is the parsed plugin configuration with defaults applied.
type Config struct {
	GrantType           string
	TokenURL            string
	ClientID            string
	ClientSecret        string
	AuthorizationURL    string
	AuthorizationCode   string
	RefreshToken        string
	Scope               string
	Audience            string
	AuthMethod          string
	UsePKCE             bool
	CodeChallengeMethod string
	CallbackPort        int
	CallbackPath        string
	AdditionalParams    map[string]string
	Timeout             time.Duration
	CacheKey            string
	TokenStorage        string

	// Interactive overrides the automatic detection when set.
	Interactive *bool
}

func parseConfig(raw map[string]any) (*Config, error) {
	cfg := &Config{
		GrantType:           grantClientCredentials,
		AuthMethod:          authMethodPost,
		UsePKCE:             true,
		CodeChallengeMethod: oauth.MethodS256,
		CallbackPort:        defaultCallbackPort,
		CallbackPath:        defaultCallbackPath,
		Timeout:             defaultTimeout,
		TokenStorage:        storageAuto,
	}

	var err error
	if cfg.GrantType, err = stringField(raw, "grantType", cfg.GrantType); err != nil {
		return nil, err
	}
	if cfg.TokenURL, err = stringField(raw, "tokenUrl", ""); err != nil {
		return nil, err
	}
	if cfg.ClientID, err = stringField(raw, "clientId", ""); err != nil {
		return nil, err
	}
	if cfg.ClientSecret, err = stringField(raw, "clientSecret", ""); err != nil {
		return nil, err
	}
	if cfg.AuthorizationURL, err = stringField(raw, "authorizationUrl", ""); err != nil {
		return nil, err
	}
	if cfg.AuthorizationCode, err = stringField(raw, "authorizationCode", ""); err != nil {
		return nil, err
	}
	if cfg.RefreshToken, err = stringField(raw, "refreshToken", ""); err != nil {
		return nil, err
	}
	if cfg.Scope, err = stringField(raw, "scope", ""); err != nil {
		return nil, err
	}
	if cfg.Audience, err = stringField(raw, "audience", ""); err != nil {
		return nil, err
	}
	if cfg.AuthMethod, err = stringField(raw, "authMethod", cfg.AuthMethod); err != nil {
		return nil, err
	}
	if cfg.UsePKCE, err = boolField(raw, "usePKCE", cfg.UsePKCE); err != nil {
		return nil, err
	}
	if cfg.CodeChallengeMethod, err = stringField(raw, "codeChallengeMethod", cfg.CodeChallengeMethod); err != nil {
		return nil, err
	}
	if cfg.CallbackPort, err = intField(raw, "callbackPort", cfg.CallbackPort); err != nil {
		return nil, err
	}
	if cfg.CallbackPath, err = stringField(raw, "callbackPath", cfg.CallbackPath); err != nil {
		return nil, err
	}
	if cfg.AdditionalParams, err = stringMapField(raw, "additionalParams"); err != nil {
		return nil, err
	}
	timeoutMs, err := intField(raw, "timeout", int(cfg.Timeout/time.Millisecond))
	if err != nil {
		return nil, err
	}
	cfg.Timeout = time.Duration(timeoutMs) * time.Millisecond
	if cfg.CacheKey, err = stringField(raw, "cacheKey", ""); err != nil {
		return nil, err
	}
	if cfg.TokenStorage, err = stringField(raw, "tokenStorage", cfg.TokenStorage); err != nil {
		return nil, err
	}
	if value, ok := raw["interactive"]; ok {
		b, err := toBool(value)
		if err != nil {
			return nil, fmt.Errorf("interactive: %w", err)
		}
		cfg.Interactive = &b
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.TokenURL == "" {
		return fmt.Errorf("tokenUrl is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("clientId is required")
	}
	switch c.GrantType {
	case grantClientCredentials, grantAuthorizationCode, grantRefreshToken:
	default:
		return fmt.Errorf("unsupported grantType %q", c.GrantType)
	}
	switch c.AuthMethod {
	case authMethodBasic, authMethodPost:
	default:
		return fmt.Errorf("authMethod must be %q or %q, got %q", authMethodBasic, authMethodPost, c.AuthMethod)
	}
	switch c.CodeChallengeMethod {
	case oauth.MethodS256, oauth.MethodPlain:
	default:
		return fmt.Errorf("unsupported codeChallengeMethod %q", c.CodeChallengeMethod)
	}
	switch c.TokenStorage {
	case storageKeychain, storageFile, storageMemory, storageAuto:
	default:
		return fmt.Errorf("unsupported tokenStorage %q", c.TokenStorage)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.GrantType == grantRefreshToken && c.RefreshToken == "" {
		return fmt.Errorf("grantType %s requires a refreshToken", grantRefreshToken)
	}
	return nil
}

// cacheKeyFor derives the storage key for tokens with the given scope. An
// explicit cacheKey wins; otherwise the key is the md5 of a fixed-order
// JSON document so identical configurations share tokens and differing
// scopes do not.
func (c *Config) cacheKeyFor(scope string) string {
	if c.CacheKey != "" {
		return c.CacheKey
	}
	payload := struct {
		TokenURL  string `json:"tokenUrl"`
		ClientID  string `json:"clientId"`
		GrantType string `json:"grantType"`
		Scope     string `json:"scope"`
	}{c.TokenURL, c.ClientID, c.GrantType, scope}
	data, _ := json.Marshal(payload)
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func stringField(raw map[string]any, key, def string) (string, error) {
	value, ok := raw[key]
	if !ok || value == nil {
		return def, nil
	}
	switch value.(type) {
	case map[string]any, []any:
		return "", fmt.Errorf("%s must be a scalar", key)
	}
	return template.Stringify(value), nil
}

func boolField(raw map[string]any, key string, def bool) (bool, error) {
	value, ok := raw[key]
	if !ok || value == nil {
		return def, nil
	}
	b, err := toBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func toBool(value any) (bool, error) {
	switch t := value.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, fmt.Errorf("expected a boolean, got %q", t)
		}
		return b, nil
	default:
		return false, fmt.Errorf("expected a boolean, got %T", value)
	}
}

func intField(raw map[string]any, key string, def int) (int, error) {
	value, ok := raw[key]
	if !ok || value == nil {
		return def, nil
	}
	switch t := value.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		return int(t), nil
	case float64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("%s: expected an integer, got %q", key, t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s: expected an integer, got %T", key, value)
	}
}

func stringMapField(raw map[string]any, key string) (map[string]string, error) {
	value, ok := raw[key]
	if !ok || value == nil {
		return nil, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping", key)
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("%s.%s must be a scalar", key, k)
		}
		out[k] = template.Stringify(v)
	}
	return out, nil
}
