package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credmgr/internal/testing/mock"
)

// followRedirects plays the browser: it loads the authorization URL and
// follows the redirect back to the loopback server.
func followRedirects(authURL string) error {
	resp, err := http.Get(authURL)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func TestAuthCodeLogon(t *testing.T) {
	idp := mock.NewIdentityServer(mock.IdentityConfig{ClientID: "client"})
	defer idp.Close()
	c := NewClient()
	m := discover(t, c, idp, "organizations")

	var presented string
	tok, err := c.AuthCodeLogon(context.Background(), AuthCodeRequest{
		Endpoint:    m.Endpoint(),
		ClientID:    "client",
		Scopes:      []string{"scope/.default", "offline_access"},
		ExtraParams: map[string]string{"login_hint": "alice@example.com"},
		Present: func(authURL string) error {
			presented = authURL
			return followRedirects(authURL)
		},
	})
	require.NoError(t, err)
	assert.True(t, idp.ValidAccessToken(tok.AccessToken))
	assert.NotEmpty(t, tok.RefreshToken)

	u, err := url.Parse(presented)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "alice@example.com", q.Get("login_hint"))
	assert.Contains(t, q.Get("redirect_uri"), "http://localhost:")

	counters := idp.Counters()
	assert.Equal(t, 1, counters.Authorizations)
	assert.Equal(t, 1, counters.CodeExchanges)
}

func TestAuthCodeLogon_ConsentDenied(t *testing.T) {
	idp := mock.NewIdentityServer(mock.IdentityConfig{DenyConsent: true})
	defer idp.Close()
	c := NewClient()
	m := discover(t, c, idp, "organizations")

	_, err := c.AuthCodeLogon(context.Background(), AuthCodeRequest{
		Endpoint: m.Endpoint(),
		ClientID: "client",
		Present:  followRedirects,
	})
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "access_denied", authErr.Code)
	assert.Equal(t, 0, idp.Counters().CodeExchanges)
}

func TestAuthCodeLogon_StateMismatch(t *testing.T) {
	idp := mock.NewIdentityServer(mock.IdentityConfig{})
	defer idp.Close()
	c := NewClient()
	m := discover(t, c, idp, "organizations")

	_, err := c.AuthCodeLogon(context.Background(), AuthCodeRequest{
		Endpoint: m.Endpoint(),
		ClientID: "client",
		Present: func(authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			return followRedirects(fmt.Sprintf("%s?code=stolen&state=forged", u.Query().Get("redirect_uri")))
		},
	})
	assert.ErrorIs(t, err, ErrStateMismatch)
	assert.Equal(t, 0, idp.Counters().CodeExchanges)
}

func TestAuthCodeLogon_PresenterFailure(t *testing.T) {
	c := NewClient()
	boom := errors.New("no display")
	_, err := c.AuthCodeLogon(context.Background(), AuthCodeRequest{
		ClientID: "client",
		Present:  func(string) error { return boom },
	})
	assert.ErrorIs(t, err, boom)

	_, err = c.AuthCodeLogon(context.Background(), AuthCodeRequest{ClientID: "client"})
	assert.Error(t, err)
}

func TestAuthCodeLogon_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient()
	_, err := c.AuthCodeLogon(ctx, AuthCodeRequest{
		ClientID: "client",
		Endpoint: (&Metadata{AuthorizationEndpoint: "http://127.0.0.1:1/authorize"}).Endpoint(),
		Present: func(string) error {
			cancel()
			return nil
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
