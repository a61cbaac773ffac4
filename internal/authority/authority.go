package authority

import (
	"context"
	"fmt"

	"credmgr/internal/config"
	"credmgr/internal/secret"
	"credmgr/internal/target"
)

// Kind tags the authority variants.
type Kind = config.AuthorityType

const (
	KindBasic            = config.AuthorityBasic
	KindAzureDirectory   = config.AuthorityAzureDirectory
	KindMicrosoftAccount = config.AuthorityMicrosoftAccount
	KindGitHub           = config.AuthorityGitHub
	KindIntegrated       = config.AuthorityIntegrated
)

// Authority is the lifecycle every variant implements.
type Authority interface {
	Kind() Kind

	// GetCredentials reads the stored credential for t. It never performs
	// network I/O and returns secret.ErrNotFound when nothing is stored.
	GetCredentials(t target.URI) (secret.Credential, error)

	// SetCredentials writes c through to the store.
	SetCredentials(t target.URI, c secret.Credential) error

	// DeleteCredentials removes every piece of secret material the
	// authority manages for t. It is idempotent and exhaustive.
	DeleteCredentials(t target.URI) error

	// ValidateCredentials reports whether the provider currently accepts c.
	// Network failures yield false.
	ValidateCredentials(ctx context.Context, t target.URI, c secret.Credential) bool
}

// BasicAuthority adds the credential prompt of the Basic variant.
type BasicAuthority interface {
	Authority

	// PromptCredentials asks the user for a credential and writes it
	// through to the store.
	PromptCredentials(ctx context.Context, t target.URI) (bool, error)
}

// OAuthAuthority is implemented by the DevOps variants. Each method
// reports whether it produced fresh material in the store.
type OAuthAuthority interface {
	Authority

	// RefreshCredentials redeems a stored refresh token. When
	// interactiveFallback is set and no refresh token exists, an
	// interactive logon is attempted instead.
	RefreshCredentials(ctx context.Context, t target.URI, interactiveFallback bool) (bool, error)

	// NoninteractiveLogon acquires credentials without user interaction.
	NoninteractiveLogon(ctx context.Context, t target.URI) (bool, error)

	// InteractiveLogon acquires credentials with user interaction.
	InteractiveLogon(ctx context.Context, t target.URI) (bool, error)
}

// LogonAuthority is implemented by source-host authorities that have no
// silent refresh, only an interactive handshake producing a credential.
type LogonAuthority interface {
	Authority

	InteractiveLogon(ctx context.Context, t target.URI) (secret.Credential, error)
}

// Variant is the closed set of authority shapes. Exactly the field
// matching Kind is set; build one with the constructors below.
type Variant struct {
	Kind Kind

	Basic      BasicAuthority
	OAuth      OAuthAuthority
	SourceHost LogonAuthority
	Integrated Authority
}

// BasicVariant wraps a Basic authority.
func BasicVariant(a BasicAuthority) Variant {
	return Variant{Kind: KindBasic, Basic: a}
}

// OAuthVariant wraps a DevOps authority; the kind comes from a.
func OAuthVariant(a OAuthAuthority) Variant {
	return Variant{Kind: a.Kind(), OAuth: a}
}

// SourceHostVariant wraps a GitHub authority.
func SourceHostVariant(a LogonAuthority) Variant {
	return Variant{Kind: KindGitHub, SourceHost: a}
}

// IntegratedVariant wraps an Integrated authority.
func IntegratedVariant(a Authority) Variant {
	return Variant{Kind: KindIntegrated, Integrated: a}
}

// Authority returns the common lifecycle of v.
func (v Variant) Authority() Authority {
	switch v.Kind {
	case KindBasic:
		return v.Basic
	case KindAzureDirectory, KindMicrosoftAccount:
		return v.OAuth
	case KindGitHub:
		return v.SourceHost
	case KindIntegrated:
		return v.Integrated
	case config.AuthorityAuto:
		return nil
	}
	return nil
}

// Validate checks that the field matching Kind is set.
func (v Variant) Validate() error {
	if a := v.Authority(); a == nil {
		return fmt.Errorf("authority variant %s has no implementation", v.Kind)
	}
	return nil
}

// Prompter asks the user for secrets. Implementations return an error
// wrapping prompt.ErrCancelled when the user aborts.
type Prompter interface {
	PromptForCredentials(ctx context.Context, t target.URI, message string) (secret.Credential, error)
	PromptForAuthCode(ctx context.Context, t target.URI, kind string) (string, error)
}

// ProgressFunc shows a wait indicator with msg and returns a function that
// removes it.
type ProgressFunc func(msg string) (stop func())

func noProgress(string) func() { return func() {} }
