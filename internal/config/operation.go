package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"credmgr/internal/target"
	"credmgr/pkg/logging"
)

// Detection is the outcome of authority auto-detection for one operation.
type Detection struct {
	Kind AuthorityType
	// TenantID is the directory tenant that owns a DevOps target. uuid.Nil
	// for personal-account hosts and non-DevOps kinds.
	TenantID uuid.UUID
}

// Operation carries the policy for one credential helper invocation. It is
// built once by NewOperation and read-only afterwards, except for the
// memoised detection result.
type Operation struct {
	Target              target.URI
	Authority           AuthorityType
	Interactivity       Interactivity
	ValidateCredentials bool
	UseModalUI          bool
	Namespace           string
	Proxy               *url.URL
	UseHTTPPath         bool
	PreserveCredentials bool
	TokenDuration       time.Duration
	CredentialStore     string
	FederatedTokenFile  string
	OAuthClientID       string
	GitHubAPIURL        string

	detected *Detection
}

// Detected returns the memoised detection result, if any.
func (o *Operation) Detected() (Detection, bool) {
	if o.detected == nil {
		return Detection{}, false
	}
	return *o.detected, true
}

// RememberDetection stores d so later calls in the same invocation do not
// probe again.
func (o *Operation) RememberDetection(d Detection) {
	o.detected = &d
}

// CanPrompt reports whether interactive steps may run.
func (o *Operation) CanPrompt() bool {
	return o.Interactivity != InteractivityNever
}

// NewOperation resolves every setting for rawURL through lookup. getenv is
// consulted for GIT_TERMINAL_PROMPT; nil means os.Getenv.
func NewOperation(lookup Lookup, getenv func(string) string, rawURL string) (*Operation, error) {
	u, err := target.Normalize(rawURL)
	if err != nil {
		return nil, err
	}
	return NewOperationForTarget(lookup, getenv, u)
}

// NewOperationForTarget is NewOperation for an already normalized target.
func NewOperationForTarget(lookup Lookup, getenv func(string) string, u target.URI) (*Operation, error) {
	if lookup == nil {
		lookup = Chain{}
	}
	if getenv == nil {
		getenv = os.Getenv
	}

	op := &Operation{
		Target:              u,
		Interactivity:       InteractivityAuto,
		ValidateCredentials: DefaultValidate,
		UseModalUI:          DefaultModalPrompt,
		Namespace:           DefaultNamespace,
		OAuthClientID:       DefaultOAuthClientID,
	}

	get := func(key string) (string, bool) {
		v, ok := lookup.Get(SectionCredential, u, key)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get(KeyAuthority); ok {
		a, err := ParseAuthority(v)
		if err != nil {
			return nil, invalidSetting(KeyAuthority, v, err,
				"Use one of: auto, basic, aad, msa, github, integrated")
		}
		op.Authority = a
	}

	if v, ok := get(KeyInteractive); ok {
		i, err := ParseInteractivity(v)
		if err != nil {
			return nil, invalidSetting(KeyInteractive, v, err, "Use one of: auto, always, never")
		}
		op.Interactivity = i
	}
	if getenv("GIT_TERMINAL_PROMPT") == "0" {
		op.Interactivity = InteractivityNever
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{KeyValidate, &op.ValidateCredentials},
		{KeyModalPrompt, &op.UseModalUI},
		{KeyPreserve, &op.PreserveCredentials},
		{KeyUseHTTPPath, &op.UseHTTPPath},
	}
	for _, b := range bools {
		v, ok := get(b.key)
		if !ok {
			continue
		}
		parsed, err := ParseBool(v)
		if err != nil {
			return nil, invalidSetting(b.key, v, err, "Use true or false")
		}
		*b.dst = parsed
	}

	if v, ok := get(KeyNamespace); ok {
		op.Namespace = v
	}

	if v, ok := get(KeyTokenDuration); ok {
		d, err := ParseTokenDuration(v)
		if err != nil {
			return nil, invalidSetting(KeyTokenDuration, v, err, "Use a duration such as 720h or a number of hours")
		}
		op.TokenDuration = d
	}

	if v, ok := get(KeyCredentialStore); ok {
		op.CredentialStore = strings.ToLower(v)
	}
	if v, ok := get(KeyFederatedTokenFile); ok {
		op.FederatedTokenFile = v
	}
	if v, ok := get(KeyOAuthClientID); ok {
		op.OAuthClientID = v
	}
	if v, ok := get(KeyGitHubAPI); ok {
		op.GitHubAPIURL = strings.TrimSuffix(v, "/")
	}

	proxy, err := resolveProxy(lookup, u)
	if err != nil {
		return nil, err
	}
	op.Proxy = proxy

	logging.Debug("Config", "Operation for %s: authority=%s interactive=%s validate=%t namespace=%s",
		u, op.Authority, op.Interactivity, op.ValidateCredentials, op.Namespace)
	return op, nil
}

// resolveProxy walks credential.httpProxy, then http.proxy, the latter
// covering the HTTPS_PROXY family of environment variables.
func resolveProxy(lookup Lookup, u target.URI) (*url.URL, error) {
	candidates := []struct{ section, key string }{
		{SectionCredential, KeyHTTPProxy},
		{SectionHTTP, KeyProxy},
	}
	for _, c := range candidates {
		v, ok := lookup.Get(c.section, u, c.key)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			continue
		}
		if !strings.Contains(v, "://") {
			v = "http://" + v
		}
		p, err := url.Parse(v)
		if err != nil || p.Host == "" {
			if err == nil {
				err = fmt.Errorf("missing host")
			}
			return nil, invalidSetting(c.key, v, err, "Use a proxy URL such as http://proxy:8080")
		}
		return p, nil
	}
	return nil, nil
}

// ParseBool accepts git's boolean spellings.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean")
}

// ParseTokenDuration accepts a Go duration or a whole number of hours, and
// caps the result at MaxTokenDuration.
func ParseTokenDuration(s string) (time.Duration, error) {
	var d time.Duration
	if n, err := strconv.Atoi(s); err == nil {
		d = time.Duration(n) * time.Hour
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, err
		}
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration")
	}
	if d > MaxTokenDuration {
		d = MaxTokenDuration
	}
	return d, nil
}
