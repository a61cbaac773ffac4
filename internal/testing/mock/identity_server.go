package mock

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// IdentityConfig configures an IdentityServer.
type IdentityConfig struct {
	// ClientID is the expected client id; empty accepts any.
	ClientID string
	// TokenLifetime of issued access tokens; defaults to one hour.
	TokenLifetime time.Duration
	// Assertion is the federated token accepted by the client
	// credentials grant; empty rejects every assertion.
	Assertion string
	// RejectRefresh answers every refresh with invalid_grant.
	RejectRefresh bool
	// DenyConsent answers authorization requests with access_denied.
	DenyConsent bool
	Clock       Clock
}

type codeEntry struct {
	tenant      string
	redirectURI string
	challenge   string
}

// IdentityServer is a fake OAuth login service. Every first path segment
// is a tenant; discovery lives at /{tenant}/v2.0/.well-known/openid-configuration.
type IdentityServer struct {
	cfg IdentityConfig
	srv *httptest.Server

	mu       sync.Mutex
	codes    map[string]codeEntry
	refresh  map[string]string    // refresh token -> tenant
	access   map[string]time.Time // access token -> expiry
	counters IdentityCounters
}

// IdentityCounters counts grant requests by type.
type IdentityCounters struct {
	Discovery          int
	Authorizations     int
	CodeExchanges      int
	Refreshes          int
	AssertionExchanges int
	Tenants            []string
}

// NewIdentityServer starts an IdentityServer. Close it when done.
func NewIdentityServer(cfg IdentityConfig) *IdentityServer {
	if cfg.TokenLifetime == 0 {
		cfg.TokenLifetime = time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	s := &IdentityServer{
		cfg:     cfg,
		codes:   make(map[string]codeEntry),
		refresh: make(map[string]string),
		access:  make(map[string]time.Time),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the base URL, the authority host of the login service.
func (s *IdentityServer) URL() string { return s.srv.URL }

// Close shuts the server down.
func (s *IdentityServer) Close() { s.srv.Close() }

// Counters returns a snapshot of the request counters.
func (s *IdentityServer) Counters() IdentityCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.counters
	c.Tenants = append([]string(nil), s.counters.Tenants...)
	return c
}

// IssueRefreshToken seeds a refresh token for tenant.
func (s *IdentityServer) IssueRefreshToken(tenant string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt := opaqueToken("rt-")
	s.refresh[rt] = tenant
	return rt
}

// ValidAccessToken reports whether tok was issued and has not expired.
func (s *IdentityServer) ValidAccessToken(tok string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.access[tok]
	return ok && s.cfg.Clock.Now().Before(exp)
}

func (s *IdentityServer) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.SplitN(strings.Trim(r.URL.Path, "/"), "/", 2)
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	tenant, rest := parts[0], parts[1]

	switch rest {
	case "v2.0/.well-known/openid-configuration":
		s.handleMetadata(w, tenant)
	case "oauth2/v2.0/authorize":
		s.handleAuthorize(w, r, tenant)
	case "oauth2/v2.0/token":
		s.handleToken(w, r, tenant)
	default:
		http.NotFound(w, r)
	}
}

func (s *IdentityServer) handleMetadata(w http.ResponseWriter, tenant string) {
	s.mu.Lock()
	s.counters.Discovery++
	s.mu.Unlock()

	base := s.srv.URL + "/" + tenant
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"issuer":                           base + "/v2.0",
		"authorization_endpoint":           base + "/oauth2/v2.0/authorize",
		"token_endpoint":                   base + "/oauth2/v2.0/token",
		"code_challenge_methods_supported": []string{"S256"},
	})
}

func (s *IdentityServer) handleAuthorize(w http.ResponseWriter, r *http.Request, tenant string) {
	q := r.URL.Query()
	redirectURI := q.Get("redirect_uri")
	target, err := url.Parse(redirectURI)
	if err != nil || redirectURI == "" {
		http.Error(w, "invalid redirect_uri", http.StatusBadRequest)
		return
	}
	if q.Get("response_type") != "code" || (s.cfg.ClientID != "" && q.Get("client_id") != s.cfg.ClientID) {
		http.Error(w, "invalid_request", http.StatusBadRequest)
		return
	}

	back := target.Query()
	back.Set("state", q.Get("state"))

	if s.cfg.DenyConsent {
		back.Set("error", "access_denied")
		back.Set("error_description", "the user declined consent")
	} else {
		code := opaqueToken("code-")
		s.mu.Lock()
		s.counters.Authorizations++
		s.codes[code] = codeEntry{tenant: tenant, redirectURI: redirectURI, challenge: q.Get("code_challenge")}
		s.mu.Unlock()
		back.Set("code", code)
	}

	target.RawQuery = back.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (s *IdentityServer) handleToken(w http.ResponseWriter, r *http.Request, tenant string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		oauthError(w, "invalid_request", err.Error())
		return
	}
	if s.cfg.ClientID != "" && r.PostForm.Get("client_id") != s.cfg.ClientID {
		oauthError(w, "invalid_client", "unknown client")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Tenants = append(s.counters.Tenants, tenant)

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		s.counters.CodeExchanges++
		entry, ok := s.codes[r.PostForm.Get("code")]
		delete(s.codes, r.PostForm.Get("code"))
		if !ok || entry.tenant != tenant || entry.redirectURI != r.PostForm.Get("redirect_uri") {
			oauthError(w, "invalid_grant", "unknown authorization code")
			return
		}
		if entry.challenge != "" && s256(r.PostForm.Get("code_verifier")) != entry.challenge {
			oauthError(w, "invalid_grant", "code verifier mismatch")
			return
		}
		s.issue(w, tenant, true)

	case "refresh_token":
		s.counters.Refreshes++
		rt := r.PostForm.Get("refresh_token")
		owner, ok := s.refresh[rt]
		if s.cfg.RejectRefresh || !ok || owner != tenant {
			oauthError(w, "invalid_grant", "refresh token is not valid")
			return
		}
		delete(s.refresh, rt)
		s.issue(w, tenant, true)

	case "client_credentials":
		s.counters.AssertionExchanges++
		if s.cfg.Assertion == "" || r.PostForm.Get("client_assertion") != s.cfg.Assertion ||
			r.PostForm.Get("client_assertion_type") != "urn:ietf:params:oauth:client-assertion-type:jwt-bearer" {
			oauthError(w, "invalid_client", "assertion rejected")
			return
		}
		s.issue(w, tenant, false)

	default:
		oauthError(w, "unsupported_grant_type", r.PostForm.Get("grant_type"))
	}
}

// issue writes a token response; the caller holds s.mu.
func (s *IdentityServer) issue(w http.ResponseWriter, tenant string, withRefresh bool) {
	at := opaqueToken("at-")
	s.access[at] = s.cfg.Clock.Now().Add(s.cfg.TokenLifetime)

	resp := map[string]interface{}{
		"access_token": at,
		"token_type":   "Bearer",
		"expires_in":   int(s.cfg.TokenLifetime.Seconds()),
	}
	if withRefresh {
		rt := opaqueToken("rt-")
		s.refresh[rt] = tenant
		resp["refresh_token"] = rt
	}
	writeJSON(w, http.StatusOK, resp)
}

func s256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func oauthError(w http.ResponseWriter, code, desc string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error":             code,
		"error_description": desc,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
