package oauth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"credmgr/pkg/logging"
)

// ErrStateMismatch is returned when the redirect carries a foreign state.
var ErrStateMismatch = errors.New("oauth state mismatch")

// AuthorizationError is an error response delivered to the redirect URI,
// e.g. access_denied when the user declines consent.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
	}
	return "authorization failed: " + e.Code
}

// URLPresenter shows the authorization URL to the user: by opening a
// browser, by printing it, or both.
type URLPresenter func(authURL string) error

// AuthCodeRequest describes one authorization code logon.
type AuthCodeRequest struct {
	Endpoint oauth2.Endpoint
	ClientID string
	Scopes   []string
	// ExtraParams are added to the authorization URL, e.g. a login hint.
	ExtraParams map[string]string
	// Present shows the URL; required.
	Present URLPresenter
	// Port of the loopback server; 0 picks a free port.
	Port int
}

// AuthCodeLogon runs the authorization code flow with PKCE over a loopback
// redirect and returns the issued token.
func (c *Client) AuthCodeLogon(ctx context.Context, req AuthCodeRequest) (*oauth2.Token, error) {
	if req.Present == nil {
		return nil, errors.New("no URL presenter configured")
	}

	ctx, cancel := context.WithTimeout(ctx, CallbackTimeout)
	defer cancel()

	server := NewCallbackServer(req.Port)
	redirectURI, err := server.Start(ctx)
	if err != nil {
		return nil, err
	}
	defer server.Stop()

	state, err := GenerateState()
	if err != nil {
		return nil, err
	}
	pkce := NewPKCE()

	cfg := &oauth2.Config{
		ClientID:    req.ClientID,
		Endpoint:    req.Endpoint,
		RedirectURL: redirectURI,
		Scopes:      req.Scopes,
	}

	opts := []oauth2.AuthCodeOption{pkce.ChallengeOption()}
	for k, v := range req.ExtraParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	authURL := cfg.AuthCodeURL(state, opts...)

	logging.Debug("OAuth", "Waiting for authorization callback on %s", redirectURI)
	if err := req.Present(authURL); err != nil {
		return nil, fmt.Errorf("failed to present authorization URL: %w", err)
	}

	result, err := server.WaitForCallback(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for authorization callback: %w", err)
	}
	if result.IsError() {
		return nil, &AuthorizationError{Code: result.Error, Description: result.ErrorDescription}
	}
	if result.State != state {
		return nil, ErrStateMismatch
	}

	return c.ExchangeCode(ctx, cfg, result.Code, pkce.Verifier)
}
