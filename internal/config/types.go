package config

import (
	"fmt"
	"strings"
)

// Interactivity governs whether user-facing prompts may occur.
type Interactivity int

const (
	// InteractivityAuto prompts only when no silent strategy succeeds.
	InteractivityAuto Interactivity = iota
	// InteractivityAlways skips every silent strategy.
	InteractivityAlways
	// InteractivityNever never prompts.
	InteractivityNever
)

// String returns the setting value for i.
func (i Interactivity) String() string {
	switch i {
	case InteractivityAlways:
		return "always"
	case InteractivityNever:
		return "never"
	default:
		return "auto"
	}
}

// ParseInteractivity parses the interactive setting. "true" and "false"
// are accepted for compatibility with boolean-valued configs.
func ParseInteractivity(s string) (Interactivity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return InteractivityAuto, nil
	case "always", "true", "force":
		return InteractivityAlways, nil
	case "never", "false":
		return InteractivityNever, nil
	default:
		return InteractivityAuto, fmt.Errorf("invalid interactivity %q (want always, auto or never)", s)
	}
}

// AuthorityType selects the authority that manages a target's credentials.
// AuthorityAuto means "detect"; every other value names a concrete variant.
type AuthorityType int

const (
	AuthorityAuto AuthorityType = iota
	AuthorityBasic
	AuthorityAzureDirectory
	AuthorityMicrosoftAccount
	AuthorityGitHub
	AuthorityIntegrated
)

// String returns the canonical setting value.
func (a AuthorityType) String() string {
	switch a {
	case AuthorityBasic:
		return "basic"
	case AuthorityAzureDirectory:
		return "aad"
	case AuthorityMicrosoftAccount:
		return "msa"
	case AuthorityGitHub:
		return "github"
	case AuthorityIntegrated:
		return "integrated"
	default:
		return "auto"
	}
}

// ParseAuthority parses the authority setting and its aliases.
func ParseAuthority(s string) (AuthorityType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return AuthorityAuto, nil
	case "basic":
		return AuthorityBasic, nil
	case "aad", "azure", "azuredirectory":
		return AuthorityAzureDirectory, nil
	case "msa", "microsoft", "microsoftaccount", "live":
		return AuthorityMicrosoftAccount, nil
	case "github":
		return AuthorityGitHub, nil
	case "integrated", "windows", "kerberos", "ntlm", "tfs":
		return AuthorityIntegrated, nil
	default:
		return AuthorityAuto, fmt.Errorf("invalid authority %q", s)
	}
}
