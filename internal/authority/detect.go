package authority

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"credmgr/internal/config"
	"credmgr/internal/oauth"
	"credmgr/internal/secret"
	"credmgr/internal/target"
	"credmgr/internal/token"
	"credmgr/pkg/logging"
)

// probeTimeout bounds the anonymous tenant probe.
const probeTimeout = 10 * time.Second

// Probe decides whether one authority family claims a target.
type Probe interface {
	Name() string
	Detect(ctx context.Context, op *config.Operation) (config.Detection, bool)
}

// Detector runs probes in priority order and falls back to Basic.
type Detector struct {
	probes []Probe
}

// NewDetector returns a detector running probes in the given order.
func NewDetector(probes ...Probe) *Detector {
	return &Detector{probes: probes}
}

// NewDefaultDetector probes DevOps first and GitHub second.
func NewDefaultDetector(httpClient *http.Client, store *secret.Store) *Detector {
	return NewDetector(
		&DevOpsProbe{HTTPClient: httpClient, Store: store},
		&GitHubProbe{},
	)
}

// Detect returns the authority for op. The result is memoised on op, so
// only the first call in an invocation probes.
func (d *Detector) Detect(ctx context.Context, op *config.Operation) config.Detection {
	if det, ok := op.Detected(); ok {
		return det
	}

	det := config.Detection{Kind: KindBasic}
	for _, p := range d.probes {
		if found, ok := p.Detect(ctx, op); ok {
			logging.Debug("Detect", "%s claimed %s as %s", p.Name(), op.Target, found.Kind)
			det = found
			break
		}
	}
	if det.Kind == KindBasic {
		logging.Debug("Detect", "No OAuth provider claimed %s, using basic", op.Target)
	}

	op.RememberDetection(det)
	return det
}

// DevOpsProbe claims DevOps hosts. It looks for a stored token that names
// its tenant first, then asks the host anonymously for the tenant header.
type DevOpsProbe struct {
	HTTPClient *http.Client
	Store      *secret.Store
}

func (p *DevOpsProbe) Name() string { return "devops" }

func (p *DevOpsProbe) Detect(ctx context.Context, op *config.Operation) (config.Detection, bool) {
	t := op.Target

	if p.Store != nil {
		store := p.Store.WithNamespace(op.Namespace)
		for _, tt := range []token.Type{token.TypeRefresh, token.TypeAccess, token.TypePersonal} {
			tok, err := store.ReadToken(t, tt)
			if err != nil {
				continue
			}
			if tok.PersonalAccount {
				return config.Detection{Kind: KindMicrosoftAccount}, true
			}
			return config.Detection{Kind: KindAzureDirectory, TenantID: tok.TenantID}, true
		}
	}

	if t.Scheme != "http" && t.Scheme != "https" {
		return config.Detection{}, false
	}
	if IsGitHubHost(t.Host) {
		return config.Detection{}, false
	}

	tenant, present, err := p.probeTenant(ctx, t)
	if err != nil {
		logging.Debug("Detect", "Tenant probe of %s failed: %v", t, err)
	}
	switch {
	case present && tenant == uuid.Nil:
		return config.Detection{Kind: KindMicrosoftAccount}, true
	case present:
		return config.Detection{Kind: KindAzureDirectory, TenantID: tenant}, true
	case IsDevOpsHost(t.Host):
		return config.Detection{Kind: KindAzureDirectory}, true
	}
	return config.Detection{}, false
}

// probeTenant requests the connection data anonymously and reads the
// tenant header. present reports whether a parsable header came back.
func (p *DevOpsProbe) probeTenant(ctx context.Context, t target.URI) (tenant uuid.UUID, present bool, err error) {
	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	endpoint := devOpsBase(t).Join(connectionDataPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return uuid.Nil, false, err
	}

	resp, err := client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = transportError("devops", endpoint, urlErr.Err)
		}
		return uuid.Nil, false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	id, ok, err := ParseTenantHeader(resp.Header.Values(TenantHeader))
	if ok {
		return id, true, nil
	}
	if err != nil {
		logging.Warn("Detect", "Ignoring %s from %s: %v", TenantHeader, endpoint, err)
	}
	id, ok = tenantFromChallenges(resp.Header.Values("WWW-Authenticate"))
	return id, ok, nil
}

// tenantFromChallenges reads the tenant from the authorization_uri of a
// Bearer challenge, which on-premises servers joined to a directory send
// instead of the tenant header.
func tenantFromChallenges(values []string) (uuid.UUID, bool) {
	for _, c := range oauth.ParseChallenges(values) {
		if !c.IsBearer() {
			continue
		}
		u, err := url.Parse(c.AuthorizationURI())
		if err != nil {
			continue
		}
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if id, err := uuid.Parse(segments[len(segments)-1]); err == nil && id != uuid.Nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

// ParseTenantHeader returns the first tenant id in the header values. The
// header may repeat or hold a comma-separated list.
func ParseTenantHeader(values []string) (uuid.UUID, bool, error) {
	var lastErr error
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				lastErr = err
				continue
			}
			return id, true, nil
		}
	}
	return uuid.Nil, false, lastErr
}

// IsDevOpsHost reports whether host is a hosted DevOps service.
func IsDevOpsHost(host string) bool {
	return host == "dev.azure.com" ||
		strings.HasSuffix(host, ".visualstudio.com") ||
		strings.HasSuffix(host, ".vsts.me")
}

// GitHubProbe claims github.com and the host of a configured GitHub API.
type GitHubProbe struct{}

func (p *GitHubProbe) Name() string { return "github" }

func (p *GitHubProbe) Detect(_ context.Context, op *config.Operation) (config.Detection, bool) {
	if IsGitHubHost(op.Target.Host) {
		return config.Detection{Kind: KindGitHub}, true
	}
	if op.GitHubAPIURL != "" {
		if u, err := target.Normalize(op.GitHubAPIURL); err == nil && u.Host == op.Target.Host {
			return config.Detection{Kind: KindGitHub}, true
		}
	}
	return config.Detection{}, false
}
