package oauth2

import (
	"context"
	"net/http"
	"sync"
	"time"

	xoauth2 "golang.org/x/oauth2"

	"httpcraft/internal/template"
	"httpcraft/pkg/logging"
)

// provider implements the token lifecycle for one plugin instance.
type provider struct {
	cfg    *Config
	store  tokenStore
	client *http.Client
	masker *template.Masker

	mu  sync.RWMutex
	mem map[string]*Token

	now func() time.Time
}

func newProvider(cfg *Config, store tokenStore, masker *template.Masker) *provider {
	return &provider{
		cfg:    cfg,
		store:  store,
		client: &http.Client{Timeout: cfg.Timeout},
		masker: masker,
		mem:    map[string]*Token{},
		now:    time.Now,
	}
}

// token returns a valid access token for the scope. It consults the
// in-memory cache, then the persistent store, then a stored refresh
// token, and finally acquires a fresh grant. A failed refresh drops the
// stored record and continues to acquisition.
func (p *provider) token(ctx context.Context, scope string) (*Token, error) {
	key := p.cfg.cacheKeyFor(scope)

	if t := p.fromMemory(key); t != nil {
		return t, nil
	}

	if stored, ok := p.store.Get(key); ok {
		if !stored.expired(p.now()) {
			p.remember(key, stored)
			return stored, nil
		}
		if stored.RefreshToken != "" {
			t, err := p.refresh(ctx, stored.RefreshToken, scope)
			if err == nil {
				p.persist(key, t)
				return t, nil
			}
			logging.Debug("OAuth2", "token refresh failed, discarding stored grant: %v", err)
			p.store.Delete(key)
		}
	}

	tok, err := p.acquire(ctx, scope)
	if err != nil {
		return nil, err
	}
	t := fromOAuth2(tok, scope)
	p.persist(key, t)
	return t, nil
}

// acquire obtains a fresh token, interactively when the configuration
// and environment allow it, otherwise through the configured grant.
func (p *provider) acquire(ctx context.Context, scope string) (*xoauth2.Token, error) {
	if p.cfg.interactiveEligible() {
		return p.interactiveFlow(ctx, scope)
	}

	switch p.cfg.GrantType {
	case grantClientCredentials:
		return exchangeToken(ctx, p.client, p.cfg, clientCredentialsForm(scope, p.cfg.Audience))
	case grantRefreshToken:
		return exchangeToken(ctx, p.client, p.cfg, refreshForm(p.cfg.RefreshToken, scope))
	case grantAuthorizationCode:
		if p.cfg.AuthorizationCode == "" {
			return nil, authErr("authorize", "no authorizationCode configured and interactive authorization is unavailable")
		}
		return exchangeToken(ctx, p.client, p.cfg, authorizationCodeForm(p.cfg.AuthorizationCode, "", ""))
	default:
		return nil, authErr("token request", "unsupported grantType %q", p.cfg.GrantType)
	}
}

// refresh exchanges a refresh token, keeping the old refresh token when
// the server does not rotate it.
func (p *provider) refresh(ctx context.Context, refreshToken, scope string) (*Token, error) {
	tok, err := exchangeToken(ctx, p.client, p.cfg, refreshForm(refreshToken, scope))
	if err != nil {
		return nil, err
	}
	t := fromOAuth2(tok, scope)
	if t.RefreshToken == "" {
		t.RefreshToken = refreshToken
	}
	return t, nil
}

func (p *provider) fromMemory(key string) *Token {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if t, ok := p.mem[key]; ok && !t.expired(p.now()) {
		return t
	}
	return nil
}

func (p *provider) remember(key string, t *Token) {
	p.track(t)
	p.mu.Lock()
	p.mem[key] = t
	p.mu.Unlock()
}

func (p *provider) persist(key string, t *Token) {
	p.store.Put(key, t)
	p.remember(key, t)
}

// track keeps token material out of diagnostic output.
func (p *provider) track(t *Token) {
	if p.masker == nil {
		return
	}
	p.masker.Track(t.AccessToken)
	p.masker.Track(t.RefreshToken)
	p.masker.Track(t.IDToken)
}
