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

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"credmgr/internal/oauth"
	"credmgr/internal/secret"
	"credmgr/internal/target"
	"credmgr/internal/token"
	"credmgr/pkg/logging"
	pkgstrings "credmgr/pkg/strings"
)

const (
	// DefaultAuthorityHost is the directory login service.
	DefaultAuthorityHost = "https://login.microsoftonline.com"

	// PersonalTokenUsername is the username stored with personal tokens.
	PersonalTokenUsername = "PersonalAccessToken"

	// TenantHeader carries the owning directory tenant on DevOps responses.
	TenantHeader = "X-VSS-ResourceTenant"

	devOpsResourceID = "499b84ac-1321-427f-aa17-267ca6975798"

	organizationsTenant = "organizations"
	consumersTenant     = "consumers"

	locationServicePath = "_apis/ServiceDefinitions/LocationService2/951917AC-A960-4999-8464-E3F0AA25B381?api-version=1.0"
	sessionTokensPath   = "_apis/token/sessiontokens?api-version=1.0"
	connectionDataPath  = "_apis/connectionData?connectOptions=1&lastChangeId=-1&lastChangeId64=-1"
)

// DevOpsOptions configures a DevOps authority.
type DevOpsOptions struct {
	// Kind is KindAzureDirectory or KindMicrosoftAccount.
	Kind Kind
	// TenantID is the owning directory tenant; uuid.Nil lets the login
	// service pick the user's organization.
	TenantID uuid.UUID

	Store      *secret.Store
	HTTPClient *http.Client
	OAuth      *oauth.Client

	// AuthorityHost is the login service base URL.
	AuthorityHost string
	ClientID      string

	// Scope is requested for generated personal tokens.
	Scope token.DevOpsScope
	// TokenDuration is the requested personal token lifetime; 0 leaves
	// it to the service.
	TokenDuration time.Duration
	// FullTokens requests full-length personal tokens instead of compact
	// ones.
	FullTokens bool

	// FederatedTokenFile holds a workload identity token for
	// non-interactive logons.
	FederatedTokenFile string

	// Present shows the authorization URL for interactive logons.
	Present oauth.URLPresenter
	// Progress shows a wait indicator during interactive logons.
	Progress ProgressFunc

	// Now is swapped in tests.
	Now func() time.Time
}

// DevOps is the OAuth-backed authority for DevOps hosts, in its directory
// (KindAzureDirectory) and personal account (KindMicrosoftAccount)
// variants. Logons obtain an access token from the login service and
// trade it for a personal token, which is what git sends.
type DevOps struct {
	opts DevOpsOptions
}

// NewDevOps returns a DevOps authority.
func NewDevOps(opts DevOpsOptions) (*DevOps, error) {
	if opts.Kind != KindAzureDirectory && opts.Kind != KindMicrosoftAccount {
		return nil, fmt.Errorf("devops authority cannot be of kind %s", opts.Kind)
	}
	if opts.Store == nil {
		return nil, errors.New("devops authority requires a store")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if opts.OAuth == nil {
		opts.OAuth = oauth.NewClient(oauth.WithHTTPClient(opts.HTTPClient))
	}
	if opts.AuthorityHost == "" {
		opts.AuthorityHost = DefaultAuthorityHost
	}
	opts.AuthorityHost = strings.TrimSuffix(opts.AuthorityHost, "/")
	if opts.Scope.IsEmpty() {
		opts.Scope = token.DevOpsGitScope
	}
	if opts.Progress == nil {
		opts.Progress = noProgress
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &DevOps{opts: opts}, nil
}

func (d *DevOps) Kind() Kind { return d.opts.Kind }

func (d *DevOps) personalAccount() bool { return d.opts.Kind == KindMicrosoftAccount }

// TenantID returns the directory tenant the authority logs in against.
func (d *DevOps) TenantID() uuid.UUID { return d.opts.TenantID }

func (d *DevOps) GetCredentials(t target.URI) (secret.Credential, error) {
	return d.opts.Store.ReadCredential(t)
}

func (d *DevOps) SetCredentials(t target.URI, c secret.Credential) error {
	return d.opts.Store.WriteCredential(t, c)
}

// DeleteCredentials removes the credential and every token type, under
// both target-name strategies, so entries from earlier logons and from a
// switched useHttpPath setting go in one call.
func (d *DevOps) DeleteCredentials(t target.URI) error {
	var errs []error
	for _, s := range []*secret.Store{d.opts.Store, d.opts.Store.Alternate()} {
		if _, err := s.DeleteCredential(t); err != nil {
			errs = append(errs, err)
		}
		for _, tt := range token.Types {
			if _, err := s.DeleteToken(t, tt); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// ValidateCredentials calls the connection data endpoint of the
// organization with c.
func (d *DevOps) ValidateCredentials(ctx context.Context, t target.URI, c secret.Credential) bool {
	endpoint := devOpsBase(t).Join(connectionDataPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	req.SetBasicAuth(c.Username, c.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := d.opts.HTTPClient.Do(req)
	if err != nil {
		logging.Debug("DevOps", "Validation of %s failed: %v", t, transportError("devops", endpoint, err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	logging.Debug("DevOps", "Validation of %s returned %d", t, resp.StatusCode)
	return resp.StatusCode == http.StatusOK
}

// RefreshCredentials redeems the stored refresh token.
func (d *DevOps) RefreshCredentials(ctx context.Context, t target.URI, interactiveFallback bool) (bool, error) {
	refresh, err := d.opts.Store.ReadToken(t, token.TypeRefresh)
	if errors.Is(err, secret.ErrNotFound) {
		if interactiveFallback {
			return d.InteractiveLogon(ctx, t)
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}

	endpoint, err := d.endpoint(ctx)
	if err != nil {
		return false, err
	}

	tok, err := d.opts.OAuth.Refresh(ctx, endpoint, d.opts.ClientID, refresh.Value, d.oauthScopes())
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidGrant) {
			// spent or revoked; keep it from being tried again
			_, _ = d.opts.Store.DeleteToken(t, token.TypeRefresh)
		}
		return false, err
	}
	return d.completeLogon(ctx, t, tok, "refresh")
}

// NoninteractiveLogon exchanges the federated identity token, when one is
// configured, for an access token.
func (d *DevOps) NoninteractiveLogon(ctx context.Context, t target.URI) (bool, error) {
	if d.opts.FederatedTokenFile == "" {
		return false, nil
	}

	// #nosec G304 -- path comes from the user's configuration
	assertion, err := os.ReadFile(d.opts.FederatedTokenFile)
	if err != nil {
		return false, fmt.Errorf("reading federated token: %w", err)
	}
	if len(bytes.TrimSpace(assertion)) == 0 {
		return false, fmt.Errorf("federated token file %s is empty", d.opts.FederatedTokenFile)
	}

	endpoint, err := d.endpoint(ctx)
	if err != nil {
		return false, err
	}

	tok, err := d.opts.OAuth.ExchangeAssertion(ctx, endpoint.TokenURL, d.opts.ClientID, string(assertion), []string{devOpsResourceID + "/.default"})
	if err != nil {
		return false, err
	}
	return d.completeLogon(ctx, t, tok, "federated")
}

// InteractiveLogon runs the browser-based authorization code flow.
func (d *DevOps) InteractiveLogon(ctx context.Context, t target.URI) (bool, error) {
	if d.opts.Present == nil {
		return false, errors.New("interactive logon is not available")
	}

	endpoint, err := d.endpoint(ctx)
	if err != nil {
		return false, err
	}

	stop := d.opts.Progress("Waiting for sign-in to complete in the browser...")
	tok, err := d.opts.OAuth.AuthCodeLogon(ctx, oauth.AuthCodeRequest{
		Endpoint: endpoint,
		ClientID: d.opts.ClientID,
		Scopes:   d.oauthScopes(),
		Present:  d.opts.Present,
	})
	stop()
	if err != nil {
		return false, err
	}
	return d.completeLogon(ctx, t, tok, "interactive")
}

// completeLogon persists the OAuth tokens and trades the access token for
// a personal token that becomes the stored credential.
func (d *DevOps) completeLogon(ctx context.Context, t target.URI, tok *oauth2.Token, how string) (bool, error) {
	access, refresh := token.FromOAuth2(tok, d.opts.TenantID)
	access.PersonalAccount = d.personalAccount()
	if refresh != nil {
		refresh.PersonalAccount = access.PersonalAccount
	}
	if err := d.opts.Store.WriteToken(t, access); err != nil {
		return false, err
	}
	if refresh != nil {
		if err := d.opts.Store.WriteToken(t, *refresh); err != nil {
			return false, err
		}
	}

	pat, err := d.createPersonalToken(ctx, t, access)
	if err != nil {
		return false, err
	}
	if err := d.opts.Store.WriteToken(t, pat); err != nil {
		return false, err
	}
	if err := d.SetCredentials(t, secret.NewCredential(PersonalTokenUsername, pat.Value)); err != nil {
		return false, err
	}

	logging.Audit(logging.AuditEvent{
		Action:    "personal_token_created",
		Outcome:   "success",
		Namespace: d.opts.Store.Namespace(),
		Target:    t.String(),
		Kind:      d.opts.Kind.String() + "/" + how,
	})
	return true, nil
}

type sessionTokenRequest struct {
	DisplayName string     `json:"displayName"`
	Scope       string     `json:"scope"`
	ValidTo     *time.Time `json:"validTo,omitempty"`
}

type sessionTokenResponse struct {
	Token   string    `json:"token"`
	ValidTo time.Time `json:"validTo"`
	Scope   string    `json:"scope"`
}

func (d *DevOps) createPersonalToken(ctx context.Context, t target.URI, access token.Token) (token.Token, error) {
	identity := d.identityService(ctx, t, access)

	endpoint := identity.Join(sessionTokensPath)
	if !d.opts.FullTokens {
		endpoint += "&tokentype=compact"
	}

	hostname, _ := os.Hostname()
	body := sessionTokenRequest{
		DisplayName: pkgstrings.Label(fmt.Sprintf("Git: %s on %s", devOpsBase(t), hostname), pkgstrings.TokenLabelMaxLen),
		Scope:       d.opts.Scope.String(),
	}
	if d.opts.TokenDuration > 0 {
		validTo := d.opts.Now().Add(d.opts.TokenDuration).UTC()
		body.ValidTo = &validTo
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return token.Token{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return token.Token{}, err
	}
	req.Header.Set("Authorization", "Bearer "+access.Value)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := d.opts.HTTPClient.Do(req)
	if err != nil {
		return token.Token{}, transportError("devops", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return token.Token{}, transportError("devops", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return token.Token{}, &ProviderError{
			Provider: "devops",
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Err:      errors.New("personal token request rejected"),
		}
	}

	var out sessionTokenResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return token.Token{}, fmt.Errorf("parsing personal token response: %w", err)
	}
	if out.Token == "" {
		return token.Token{}, errors.New("personal token response carried no token")
	}

	scope := out.Scope
	if scope == "" {
		scope = d.opts.Scope.String()
	}
	return token.Token{
		Type:     token.TypePersonal,
		Value:    out.Token,
		Expiry:   out.ValidTo,
		TenantID: d.opts.TenantID,
		Scope:    scope,
		Compact:  !d.opts.FullTokens,

		PersonalAccount: d.personalAccount(),
	}, nil
}

type locationMapping struct {
	AccessMappingMoniker string `json:"accessMappingMoniker"`
	Location             string `json:"location"`
}

// identityService asks the location service of the organization where its
// token service lives. Failures fall back to the organization itself.
func (d *DevOps) identityService(ctx context.Context, t target.URI, access token.Token) target.URI {
	base := devOpsBase(t)
	endpoint := base.Join(locationServicePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return base
	}
	req.Header.Set("Authorization", "Bearer "+access.Value)
	req.Header.Set("Accept", "application/json")

	resp, err := d.opts.HTTPClient.Do(req)
	if err != nil {
		logging.Debug("DevOps", "Location service lookup failed: %v", err)
		return base
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logging.Debug("DevOps", "Location service returned %d, using %s", resp.StatusCode, base)
		return base
	}

	var out struct {
		LocationMappings []locationMapping `json:"locationMappings"`
		Location         string            `json:"location"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return base
	}

	loc := out.Location
	for _, m := range out.LocationMappings {
		if m.Location != "" {
			loc = m.Location
			break
		}
	}
	if loc == "" {
		return base
	}
	u, err := target.Normalize(loc)
	if err != nil {
		return base
	}
	return u
}

// endpoint discovers the login service endpoints of the tenant.
func (d *DevOps) endpoint(ctx context.Context) (oauth2.Endpoint, error) {
	meta, err := d.opts.OAuth.DiscoverMetadata(ctx, d.authorityURL()+"/v2.0")
	if err != nil {
		return oauth2.Endpoint{}, &ProviderError{Provider: "login", Endpoint: d.authorityURL(), Err: err}
	}
	return meta.Endpoint(), nil
}

func (d *DevOps) authorityURL() string {
	tenant := organizationsTenant
	switch {
	case d.opts.Kind == KindMicrosoftAccount:
		tenant = consumersTenant
	case d.opts.TenantID != uuid.Nil:
		tenant = d.opts.TenantID.String()
	}
	return d.opts.AuthorityHost + "/" + tenant
}

func (d *DevOps) oauthScopes() []string {
	return []string{devOpsResourceID + "/.default", "offline_access"}
}

// devOpsBase returns the organization URL of t: dev.azure.com keeps its
// first path segment, every other host its root.
func devOpsBase(t target.URI) target.URI {
	base := t.Base()
	if t.Host == "dev.azure.com" && t.Path != "" {
		base.Path = strings.SplitN(t.Path, "/", 2)[0]
	}
	return base
}
