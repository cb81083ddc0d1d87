package oauth2

import (
	"time"

	xoauth2 "golang.org/x/oauth2"
)

// expiryMargin is subtracted from the server-reported lifetime when a
// token is stored, so a token close to expiry is never handed out.
const expiryMargin = 60 * time.Second

// Token is one stored grant result. ExpiresAt is Unix milliseconds with
// the margin already applied; zero means the token never expires.
type Token struct {
	AccessToken  string `json:"accessToken"`
	TokenType    string `json:"tokenType,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	IDToken      string `json:"idToken,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"`
}

func (t *Token) expired(now time.Time) bool {
	if t == nil {
		return true
	}
	if t.ExpiresAt == 0 {
		return false
	}
	return now.UnixMilli() >= t.ExpiresAt
}

// tokenType returns the declared type, defaulting to Bearer.
func (t *Token) tokenType() string {
	if t.TokenType == "" {
		return "Bearer"
	}
	return t.TokenType
}

// authorizationValue renders the Authorization header value.
func (t *Token) authorizationValue() string {
	return t.tokenType() + " " + t.AccessToken
}

// fromOAuth2 converts a token endpoint result into a storable record,
// applying the expiry margin.
func fromOAuth2(tok *xoauth2.Token, scope string) *Token {
	t := &Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Scope:        scope,
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		t.IDToken = id
	}
	if !tok.Expiry.IsZero() {
		t.ExpiresAt = tok.Expiry.Add(-expiryMargin).UnixMilli()
	}
	return t
}
