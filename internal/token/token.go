package token

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Token is a typed secret issued by an OAuth-backed authority.
//
// SECURITY: Value is never logged. String, GoString and LogValue return a
// redacted form.
type Token struct {
	// Type says how the token is used.
	Type Type `json:"type"`

	// Value is the secret token string.
	Value string `json:"value"`

	// Expiry is when the token stops being accepted, zero if unknown.
	Expiry time.Time `json:"expiry,omitempty"`

	// TenantID is the directory tenant that issued the token, if any.
	TenantID uuid.UUID `json:"tenant_id"`

	// Scope is the space-delimited scope the token was granted.
	Scope string `json:"scope,omitempty"`

	// Compact is set for personal tokens issued in compact form.
	Compact bool `json:"compact,omitempty"`

	// PersonalAccount is set when a personal-account logon issued the
	// token. Such tokens carry no tenant.
	PersonalAccount bool `json:"personal_account,omitempty"`
}

// New returns a token of the given type.
func New(t Type, value string) Token {
	return Token{Type: t, Value: value}
}

// FromOAuth2 splits an oauth2 token response into its access and refresh
// tokens. The refresh token is omitted when the response carried none.
func FromOAuth2(tok *oauth2.Token, tenant uuid.UUID) (access Token, refresh *Token) {
	access = Token{
		Type:     TypeAccess,
		Value:    tok.AccessToken,
		Expiry:   tok.Expiry,
		TenantID: tenant,
	}
	if s, ok := tok.Extra("scope").(string); ok {
		access.Scope = s
	}
	if tok.RefreshToken != "" {
		refresh = &Token{
			Type:     TypeRefresh,
			Value:    tok.RefreshToken,
			TenantID: tenant,
		}
	}
	return access, refresh
}

// OAuth2 returns the token as an oauth2.Token. Refresh tokens populate the
// RefreshToken field; every other type populates AccessToken.
func (t Token) OAuth2() *oauth2.Token {
	if t.Type == TypeRefresh {
		return &oauth2.Token{RefreshToken: t.Value}
	}
	return &oauth2.Token{
		AccessToken: t.Value,
		TokenType:   "Bearer",
		Expiry:      t.Expiry,
	}
}

// IsEmpty reports whether the token carries no value.
func (t Token) IsEmpty() bool {
	return t.Value == ""
}

// IsExpired reports whether the token has a known expiry within margin of now.
func (t Token) IsExpired(margin time.Duration) bool {
	if t.Expiry.IsZero() {
		return false
	}
	return time.Now().Add(margin).After(t.Expiry)
}

// String implements fmt.Stringer without revealing the value.
func (t Token) String() string {
	return t.Type.String() + " token [REDACTED]"
}

// GoString implements fmt.GoStringer for %#v.
func (t Token) GoString() string {
	return "token.Token{Type: " + t.Type.String() + ", Value: [REDACTED]}"
}

// LogValue implements slog.LogValuer.
func (t Token) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", t.Type.String()),
		slog.Bool("empty", t.IsEmpty()),
		slog.Time("expiry", t.Expiry),
	)
}
