package oauth2

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	xoauth2 "golang.org/x/oauth2"
)

func clientCredentialsForm(scope, audience string) url.Values {
	form := url.Values{"grant_type": {grantClientCredentials}}
	if scope != "" {
		form.Set("scope", scope)
	}
	if audience != "" {
		form.Set("audience", audience)
	}
	return form
}

func refreshForm(refreshToken, scope string) url.Values {
	form := url.Values{
		"grant_type":    {grantRefreshToken},
		"refresh_token": {refreshToken},
	}
	if scope != "" {
		form.Set("scope", scope)
	}
	return form
}

func authorizationCodeForm(code, redirectURI, verifier string) url.Values {
	form := url.Values{
		"grant_type": {grantAuthorizationCode},
		"code":       {code},
	}
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}
	if verifier != "" {
		form.Set("code_verifier", verifier)
	}
	return form
}

// exchangeToken POSTs a grant to the token endpoint and decodes the
// result. Client credentials travel in the Authorization header or in
// the form, per authMethod.
func exchangeToken(ctx context.Context, client *http.Client, cfg *Config, form url.Values) (*xoauth2.Token, error) {
	if cfg.AuthMethod != authMethodBasic {
		form.Set("client_id", cfg.ClientID)
		if cfg.ClientSecret != "" {
			form.Set("client_secret", cfg.ClientSecret)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthError{Op: "token request", Message: "building request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if cfg.AuthMethod == authMethodBasic {
		req.SetBasicAuth(cfg.ClientID, cfg.ClientSecret)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &AuthError{Op: "token request", Message: "contacting token endpoint", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AuthError{Op: "token request", Message: "reading token endpoint response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, tokenEndpointError(resp.StatusCode, body)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
		IDToken      string `json:"id_token"`
		Scope        string `json:"scope"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &AuthError{Op: "token request", Message: "decoding token endpoint response", Err: err}
	}
	if payload.AccessToken == "" {
		return nil, authErr("token request", "token endpoint returned no access_token")
	}

	tok := &xoauth2.Token{
		AccessToken:  payload.AccessToken,
		TokenType:    payload.TokenType,
		RefreshToken: payload.RefreshToken,
	}
	if payload.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	if payload.IDToken != "" {
		tok = tok.WithExtra(map[string]interface{}{"id_token": payload.IDToken})
	}
	return tok, nil
}

// tokenEndpointError surfaces the server's error and error_description
// when the body is a standard OAuth error document.
func tokenEndpointError(status int, body []byte) *AuthError {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		msg := payload.Error
		if payload.ErrorDescription != "" {
			msg += ": " + payload.ErrorDescription
		}
		return authErr("token request", "token endpoint rejected the request (status %d): %s", status, msg)
	}
	return authErr("token request", "token endpoint returned status %d", status)
}
