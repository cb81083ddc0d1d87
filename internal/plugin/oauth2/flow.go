package oauth2

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/briandowns/spinner"
	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/term"

	"httpcraft/pkg/oauth"
)

// ciVariables mark build and CI environments where a browser flow cannot
// work.
var ciVariables = []string{
	"CI",
	"CONTINUOUS_INTEGRATION",
	"BUILD_NUMBER",
	"GITHUB_ACTIONS",
	"TRAVIS",
	"CIRCLECI",
	"GITLAB_CI",
}

// Swappable in tests.
var (
	stdoutIsTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
	openBrowser      = oauth.OpenBrowser
)

func runningInCI() bool {
	for _, name := range ciVariables {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// interactiveEligible reports whether a browser-based authorization flow
// should run for this configuration. An explicit interactive setting
// overrides the detection.
func (c *Config) interactiveEligible() bool {
	if c.Interactive != nil {
		return *c.Interactive
	}
	return c.GrantType == grantAuthorizationCode &&
		c.AuthorizationCode == "" &&
		c.AuthorizationURL != "" &&
		stdoutIsTerminal() &&
		!runningInCI()
}

// authorizeURL builds the provider URL the browser is sent to.
func authorizeURL(cfg *Config, redirectURI, state string, pkce *oauth.PKCEChallenge, scope string) (string, error) {
	u, err := url.Parse(cfg.AuthorizationURL)
	if err != nil {
		return "", authErr("authorize", "invalid authorizationUrl: %v", err)
	}

	params := url.Values{
		"response_type": {"code"},
		"client_id":     {cfg.ClientID},
		"redirect_uri":  {redirectURI},
		"state":         {state},
	}
	if pkce != nil {
		params.Set("code_challenge", pkce.CodeChallenge)
		params.Set("code_challenge_method", pkce.CodeChallengeMethod)
	}
	if scope != "" {
		params.Set("scope", scope)
	}
	if cfg.Audience != "" {
		params.Set("audience", cfg.Audience)
	}
	for k, v := range cfg.AdditionalParams {
		params.Set(k, v)
	}

	u.RawQuery = params.Encode()
	return u.String(), nil
}

// interactiveFlow walks the browser-based authorization code grant: a
// local callback server, the system browser, and the code exchange.
func (p *provider) interactiveFlow(ctx context.Context, scope string) (*xoauth2.Token, error) {
	if p.cfg.AuthorizationURL == "" {
		return nil, authErr("authorize", "authorizationUrl is required for interactive authorization")
	}

	var pkce *oauth.PKCEChallenge
	if p.cfg.UsePKCE {
		var err error
		pkce, err = oauth.GeneratePKCE(p.cfg.CodeChallengeMethod)
		if err != nil {
			return nil, &AuthError{Op: "authorize", Message: "generating PKCE challenge", Err: err}
		}
	}
	state, err := oauth.GenerateState()
	if err != nil {
		return nil, &AuthError{Op: "authorize", Message: "generating state", Err: err}
	}

	srv := newCallbackServer(p.cfg.CallbackPath)
	redirectURI, err := srv.start(p.cfg.CallbackPort)
	if err != nil {
		return nil, err
	}
	defer srv.stop()

	authURL, err := authorizeURL(p.cfg, redirectURI, state, pkce, scope)
	if err != nil {
		return nil, err
	}

	if err := openBrowser(authURL); err != nil {
		fmt.Fprintf(os.Stderr, "Open this URL in your browser to authorize:\n\n  %s\n\n", authURL)
	}

	var spin *spinner.Spinner
	if stdoutIsTerminal() {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		spin.Suffix = " Waiting for authorization in the browser..."
		spin.Start()
	}
	result, err := srv.wait(ctx)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return nil, err
	}

	if result.errCode != "" {
		msg := result.errCode
		if result.errDescription != "" {
			msg += ": " + result.errDescription
		}
		return nil, authErr("authorize", "authorization was rejected: %s", msg)
	}
	if result.state != state {
		return nil, authErr("authorize", "state mismatch in the callback, possible CSRF")
	}
	if result.code == "" {
		return nil, authErr("authorize", "callback carried no authorization code")
	}

	var verifier string
	if pkce != nil {
		verifier = pkce.CodeVerifier
	}
	return exchangeToken(ctx, p.client, p.cfg, authorizationCodeForm(result.code, redirectURI, verifier))
}
