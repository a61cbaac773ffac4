package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

// stateBytes encodes to 43 base64url characters.
const stateBytes = 32

// PKCE holds a code verifier and the options that carry it.
type PKCE struct {
	Verifier string
}

// NewPKCE generates a fresh S256 verifier.
func NewPKCE() *PKCE {
	return &PKCE{Verifier: oauth2.GenerateVerifier()}
}

// ChallengeOption returns the authorization request parameters for p.
func (p *PKCE) ChallengeOption() oauth2.AuthCodeOption {
	return oauth2.S256ChallengeOption(p.Verifier)
}

// GenerateState generates a random state parameter linking the
// authorization response to its request.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
