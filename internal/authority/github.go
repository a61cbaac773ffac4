package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"credmgr/internal/secret"
	"credmgr/internal/target"
	"credmgr/internal/token"
	"credmgr/pkg/logging"
	pkgstrings "credmgr/pkg/strings"
)

const (
	// GitHubDotCom is the public GitHub host.
	GitHubDotCom = "github.com"

	gitHubDotComAPI = "https://api.github.com"

	// otpHeader carries two-factor requirements and codes.
	otpHeader = "X-GitHub-OTP"
)

// AuthCodeKind names the second factor GitHub asked for.
const (
	AuthCodeSMS = "sms"
	AuthCodeApp = "app"
)

// GitHubOptions configures a GitHub authority.
type GitHubOptions struct {
	Store      *secret.Store
	HTTPClient *http.Client
	Prompter   Prompter

	// APIURL overrides the REST API base, e.g. for GitHub Enterprise.
	APIURL string
	// Scope is requested for new tokens.
	Scope token.GitHubScope

	Now func() time.Time
}

// GitHub is the source-host authority. It has no silent refresh; an
// interactive logon exchanges a username, password and optional second
// factor for a token.
type GitHub struct {
	opts GitHubOptions
}

// NewGitHub returns a GitHub authority.
func NewGitHub(opts GitHubOptions) (*GitHub, error) {
	if opts.Store == nil {
		return nil, errors.New("github authority requires a store")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if opts.Scope.IsEmpty() {
		opts.Scope = token.GitHubGitScope
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.APIURL = strings.TrimSuffix(opts.APIURL, "/")
	return &GitHub{opts: opts}, nil
}

func (g *GitHub) Kind() Kind { return KindGitHub }

func (g *GitHub) GetCredentials(t target.URI) (secret.Credential, error) {
	return g.opts.Store.ReadCredential(t)
}

func (g *GitHub) SetCredentials(t target.URI, c secret.Credential) error {
	return g.opts.Store.WriteCredential(t, c)
}

func (g *GitHub) DeleteCredentials(t target.URI) error {
	_, err := g.opts.Store.DeleteCredential(t)
	return err
}

// apiURL returns the REST API base for t.
func (g *GitHub) apiURL(t target.URI) string {
	if g.opts.APIURL != "" {
		return g.opts.APIURL
	}
	if IsGitHubHost(t.Host) {
		return gitHubDotComAPI
	}
	return t.Base().Join("api/v3")
}

// ValidateCredentials calls GET /user with c.
func (g *GitHub) ValidateCredentials(ctx context.Context, t target.URI, c secret.Credential) bool {
	endpoint := g.apiURL(t) + "/user"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	req.SetBasicAuth(c.Username, c.Password)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.opts.HTTPClient.Do(req)
	if err != nil {
		logging.Debug("GitHub", "Validation of %s failed: %v", t, transportError("github", endpoint, err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	logging.Debug("GitHub", "Validation of %s returned %d", t, resp.StatusCode)
	return resp.StatusCode == http.StatusOK
}

type authorizationRequest struct {
	Scopes []string `json:"scopes"`
	Note   string   `json:"note"`
}

type authorizationResponse struct {
	Token string `json:"token"`
}

// InteractiveLogon prompts for a username and password, answers a
// two-factor challenge when GitHub raises one, and stores the issued
// token.
func (g *GitHub) InteractiveLogon(ctx context.Context, t target.URI) (secret.Credential, error) {
	if g.opts.Prompter == nil {
		return secret.Credential{}, errors.New("no prompter configured")
	}

	login, err := g.opts.Prompter.PromptForCredentials(ctx, t, "Enter your GitHub credentials for "+t.Base().String())
	if err != nil {
		return secret.Credential{}, err
	}
	if login.IsEmpty() {
		return secret.Credential{}, errors.New("no credentials entered")
	}

	tok, status, otpKind, err := g.requestAuthorization(ctx, t, login, "")
	if err != nil {
		return secret.Credential{}, err
	}

	if status == http.StatusUnauthorized && otpKind != "" {
		code, err := g.opts.Prompter.PromptForAuthCode(ctx, t, otpKind)
		if err != nil {
			return secret.Credential{}, err
		}
		tok, status, _, err = g.requestAuthorization(ctx, t, login, code)
		if err != nil {
			return secret.Credential{}, err
		}
	}

	if status != http.StatusCreated && status != http.StatusOK {
		return secret.Credential{}, &ProviderError{
			Provider: "github",
			Endpoint: g.apiURL(t) + "/authorizations",
			Status:   status,
			Err:      ErrValidationFailed,
		}
	}

	cred := secret.NewCredential(login.Username, tok)
	if err := g.SetCredentials(t, cred); err != nil {
		return secret.Credential{}, err
	}

	logging.Audit(logging.AuditEvent{
		Action:    "token_created",
		Outcome:   "success",
		Namespace: g.opts.Store.Namespace(),
		Target:    t.String(),
		Kind:      KindGitHub.String(),
	})
	return cred, nil
}

// requestAuthorization POSTs /authorizations. It returns the token on
// success, and the second-factor kind when GitHub demands one.
func (g *GitHub) requestAuthorization(ctx context.Context, t target.URI, login secret.Credential, otp string) (tok string, status int, otpKind string, err error) {
	endpoint := g.apiURL(t) + "/authorizations"

	hostname, _ := os.Hostname()
	payload, err := json.Marshal(authorizationRequest{
		Scopes: g.opts.Scope.Names(),
		Note:   pkgstrings.Label(fmt.Sprintf("git: %s on %s at %s", t.Base(), hostname, g.opts.Now().Format(time.RFC1123)), pkgstrings.TokenLabelMaxLen),
	})
	if err != nil {
		return "", 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", 0, "", err
	}
	req.SetBasicAuth(login.Username, login.Password)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
	if otp != "" {
		req.Header.Set(otpHeader, otp)
	}

	resp, err := g.opts.HTTPClient.Do(req)
	if err != nil {
		return "", 0, "", transportError("github", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, "", transportError("github", endpoint, err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var out authorizationResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return "", resp.StatusCode, "", fmt.Errorf("parsing authorization response: %w", err)
		}
		if out.Token == "" {
			return "", resp.StatusCode, "", errors.New("authorization response carried no token")
		}
		return out.Token, resp.StatusCode, "", nil
	case http.StatusUnauthorized:
		return "", resp.StatusCode, parseOTPHeader(resp.Header.Get(otpHeader)), nil
	default:
		return "", resp.StatusCode, "", nil
	}
}

// parseOTPHeader reads "required; sms" or "required; app". Anything else
// means no second factor was requested.
func parseOTPHeader(v string) string {
	parts := strings.Split(v, ";")
	if len(parts) < 2 || strings.TrimSpace(strings.ToLower(parts[0])) != "required" {
		return ""
	}
	switch kind := strings.TrimSpace(strings.ToLower(parts[1])); kind {
	case AuthCodeSMS:
		return AuthCodeSMS
	default:
		return AuthCodeApp
	}
}

// IsGitHubHost reports whether host is public GitHub.
func IsGitHubHost(host string) bool {
	return host == GitHubDotCom || host == "gist."+GitHubDotCom
}
