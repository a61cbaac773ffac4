package authority

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// DefaultHTTPTimeout bounds every provider request.
const DefaultHTTPTimeout = 30 * time.Second

// UserAgent is sent on every provider request; cmd sets the version.
var UserAgent = "credmgr/dev"

// NewHTTPClient returns the client authorities share. A non-nil proxy
// overrides the environment proxy settings.
func NewHTTPClient(proxy *url.URL, sessionID uuid.UUID) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != nil {
		base.Proxy = http.ProxyURL(proxy)
	}
	return &http.Client{
		Timeout:   DefaultHTTPTimeout,
		Transport: &headerTransport{base: base, sessionID: sessionID},
	}
}

// headerTransport stamps the user agent and the per-invocation session id
// that DevOps services use to correlate requests.
type headerTransport struct {
	base      http.RoundTripper
	sessionID uuid.UUID
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}
	if t.sessionID != uuid.Nil {
		req.Header.Set("X-TFS-Session", t.sessionID.String())
	}
	return t.base.RoundTrip(req)
}
