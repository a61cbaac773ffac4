package oauth

import (
	"strings"

	"golang.org/x/oauth2"
)

// Metadata is the subset of RFC 8414 / OpenID Connect discovery metadata
// the helper needs.
type Metadata struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`
}

// Endpoint returns the metadata as an oauth2.Endpoint. Client credentials
// are sent in the request body since the helper is a public client.
func (m *Metadata) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   m.AuthorizationEndpoint,
		TokenURL:  m.TokenEndpoint,
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// SupportsPKCE reports whether the server advertises S256. Servers that
// publish no list are assumed to support it.
func (m *Metadata) SupportsPKCE() bool {
	if len(m.CodeChallengeMethodsSupported) == 0 {
		return true
	}
	for _, method := range m.CodeChallengeMethodsSupported {
		if strings.EqualFold(method, "S256") {
			return true
		}
	}
	return false
}
