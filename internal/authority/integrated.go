package authority

import (
	"context"

	"credmgr/internal/secret"
	"credmgr/internal/target"
)

// Integrated signals platform-integrated authentication (Kerberos, NTLM).
// It never stores anything; the empty credential tells git to let the
// HTTP stack negotiate.
type Integrated struct{}

// NewIntegrated returns an Integrated authority.
func NewIntegrated() *Integrated { return &Integrated{} }

func (Integrated) Kind() Kind { return KindIntegrated }

func (Integrated) GetCredentials(target.URI) (secret.Credential, error) {
	return secret.Credential{}, nil
}

func (Integrated) SetCredentials(target.URI, secret.Credential) error { return nil }

func (Integrated) DeleteCredentials(target.URI) error { return nil }

// ValidateCredentials always accepts: integrated auth cannot be checked
// without the platform negotiating it.
func (Integrated) ValidateCredentials(context.Context, target.URI, secret.Credential) bool {
	return true
}
