// Package oauth2 is the built-in OAuth2 plugin. It acquires access
// tokens through the client credentials, authorization code (with an
// interactive browser flow and PKCE), and refresh token grants, persists
// them in the OS keychain, an encrypted file store, or process memory,
// and attaches them to outgoing requests.
package oauth2

import (
	"context"
	"fmt"

	"httpcraft/internal/httpclient"
	"httpcraft/internal/plugin"
)

func init() {
	plugin.Register("oauth2", func() plugin.Plugin { return &Plugin{} })
}

// Plugin wires token acquisition into the request pipeline as a
// pre-request hook plus variable sources.
type Plugin struct{}

func (pl *Plugin) Setup(sc *plugin.SetupContext) error {
	cfg, err := parseConfig(sc.Config)
	if err != nil {
		return err
	}

	p := newProvider(cfg, newTokenStore(cfg.TokenStorage, defaultTokenDir()), sc.Masker)

	// An Authorization header set by the endpoint or an earlier hook
	// wins over the acquired token.
	sc.RegisterPreRequestHook(func(ctx context.Context, req *httpclient.Request) error {
		if _, set := req.Header("Authorization"); set {
			return nil
		}
		t, err := p.token(ctx, cfg.Scope)
		if err != nil {
			return err
		}
		req.SetHeader("Authorization", t.authorizationValue())
		return nil
	})

	sc.RegisterVariableSource("accessToken", func(ctx context.Context) (string, error) {
		t, err := p.token(ctx, cfg.Scope)
		if err != nil {
			return "", err
		}
		return t.AccessToken, nil
	})
	sc.RegisterVariableSource("tokenType", func(ctx context.Context) (string, error) {
		t, err := p.token(ctx, cfg.Scope)
		if err != nil {
			return "", err
		}
		return t.tokenType(), nil
	})
	sc.RegisterParameterizedVariableSource("getTokenWithScope", func(ctx context.Context, args ...string) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("getTokenWithScope takes exactly one argument, got %d", len(args))
		}
		t, err := p.token(ctx, args[0])
		if err != nil {
			return "", err
		}
		return t.AccessToken, nil
	})

	return nil
}
