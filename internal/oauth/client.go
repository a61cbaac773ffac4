package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"credmgr/pkg/logging"
)

const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultMetadataCacheTTL is the default TTL for cached OAuth metadata.
	DefaultMetadataCacheTTL = 30 * time.Minute

	// JWTBearerAssertionType is the client_assertion_type of a federated
	// identity token.
	JWTBearerAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
)

// ErrInvalidGrant is returned when the server rejects a refresh token or
// authorization code. The grant is spent and retrying will not help.
var ErrInvalidGrant = errors.New("oauth grant rejected")

type metadataCacheEntry struct {
	metadata  *Metadata
	fetchedAt time.Time
}

// Client performs the OAuth protocol operations for one invocation.
type Client struct {
	httpClient *http.Client

	metadataMu    sync.RWMutex
	metadataCache map[string]*metadataCacheEntry
	metadataTTL   time.Duration

	// deduplicates concurrent metadata fetches for the same issuer
	metadataGroup singleflight.Group
}

// ClientOption configures the OAuth client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client, e.g. one configured with a proxy.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithMetadataCacheTTL sets the metadata cache TTL.
func WithMetadataCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.metadataTTL = ttl
	}
}

// NewClient creates a new OAuth client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: DefaultHTTPTimeout},
		metadataCache: make(map[string]*metadataCacheEntry),
		metadataTTL:   DefaultMetadataCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient returns the client's HTTP client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// withHTTPClient makes x/oauth2 use our transport.
func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// DiscoverMetadata fetches metadata from the issuer's well-known endpoints,
// trying OpenID Connect discovery first and RFC 8414 second. Results are
// cached per issuer.
func (c *Client) DiscoverMetadata(ctx context.Context, issuer string) (*Metadata, error) {
	issuer = strings.TrimSuffix(issuer, "/")

	if m := c.cachedMetadata(issuer); m != nil {
		return m, nil
	}

	result, err, _ := c.metadataGroup.Do(issuer, func() (interface{}, error) {
		if m := c.cachedMetadata(issuer); m != nil {
			return m, nil
		}
		return c.doDiscoverMetadata(ctx, issuer)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Metadata), nil
}

func (c *Client) cachedMetadata(issuer string) *Metadata {
	c.metadataMu.RLock()
	defer c.metadataMu.RUnlock()
	if entry, ok := c.metadataCache[issuer]; ok && time.Since(entry.fetchedAt) < c.metadataTTL {
		return entry.metadata
	}
	return nil
}

func (c *Client) doDiscoverMetadata(ctx context.Context, issuer string) (*Metadata, error) {
	var lastErr error
	for _, suffix := range []string{"/.well-known/openid-configuration", "/.well-known/oauth-authorization-server"} {
		metadata, err := c.fetchMetadata(ctx, issuer+suffix)
		if err == nil {
			c.cacheMetadata(issuer, metadata)
			return metadata, nil
		}
		logging.Debug("OAuth", "Metadata fetch from %s%s failed: %v", issuer, suffix, err)
		lastErr = err
	}
	return nil, fmt.Errorf("failed to discover OAuth metadata for %s: %w", issuer, lastErr)
}

func (c *Client) fetchMetadata(ctx context.Context, metadataURL string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var metadata Metadata
	if err := json.Unmarshal(body, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if metadata.TokenEndpoint == "" {
		return nil, fmt.Errorf("metadata at %s has no token_endpoint", metadataURL)
	}
	return &metadata, nil
}

func (c *Client) cacheMetadata(issuer string, metadata *Metadata) {
	c.metadataMu.Lock()
	c.metadataCache[issuer] = &metadataCacheEntry{
		metadata:  metadata,
		fetchedAt: time.Now(),
	}
	c.metadataMu.Unlock()

	logging.Debug("OAuth", "Cached OAuth metadata for %s (token endpoint %s)", issuer, metadata.TokenEndpoint)
}

// ClearMetadataCache drops every cached metadata document.
func (c *Client) ClearMetadataCache() {
	c.metadataMu.Lock()
	c.metadataCache = make(map[string]*metadataCacheEntry)
	c.metadataMu.Unlock()
}

// Refresh redeems refreshToken for a new access token.
func (c *Client) Refresh(ctx context.Context, endpoint oauth2.Endpoint, clientID, refreshToken string, scopes []string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", ErrInvalidGrant)
	}
	cfg := &oauth2.Config{
		ClientID: clientID,
		Endpoint: endpoint,
		Scopes:   scopes,
	}
	tok, err := cfg.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, classifyTokenError("refresh", err)
	}
	return tok, nil
}

// ExchangeCode redeems an authorization code, proving possession of the
// PKCE verifier.
func (c *Client) ExchangeCode(ctx context.Context, cfg *oauth2.Config, code, verifier string) (*oauth2.Token, error) {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	tok, err := cfg.Exchange(c.withHTTPClient(ctx), code, opts...)
	if err != nil {
		return nil, classifyTokenError("code exchange", err)
	}
	return tok, nil
}

// ExchangeAssertion trades a federated identity token for an access token
// using the client credentials grant with a JWT bearer client assertion.
func (c *Client) ExchangeAssertion(ctx context.Context, tokenURL, clientID, assertion string, scopes []string) (*oauth2.Token, error) {
	cfg := &clientcredentials.Config{
		ClientID: clientID,
		TokenURL: tokenURL,
		Scopes:   scopes,
		EndpointParams: url.Values{
			"client_assertion_type": {JWTBearerAssertionType},
			"client_assertion":      {strings.TrimSpace(assertion)},
		},
		AuthStyle: oauth2.AuthStyleInParams,
	}
	tok, err := cfg.Token(c.withHTTPClient(ctx))
	if err != nil {
		return nil, classifyTokenError("assertion exchange", err)
	}
	return tok, nil
}

// classifyTokenError maps invalid_grant responses to ErrInvalidGrant and
// keeps everything else as-is for the caller's transport classification.
func classifyTokenError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode == "invalid_grant" || re.ErrorCode == "invalid_client" {
			return fmt.Errorf("%s: %w: %s", op, ErrInvalidGrant, re.ErrorDescription)
		}
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return fmt.Errorf("%s failed with status %d: %w", op, status, err)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}
