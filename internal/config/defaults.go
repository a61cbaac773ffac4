package config

import "time"

// Setting keys. Every key lives in the "credential" section unless noted.
const (
	SectionCredential = "credential"
	SectionHTTP       = "http"

	KeyAuthority          = "authority"
	KeyInteractive        = "interactive"
	KeyValidate           = "validate"
	KeyModalPrompt        = "modalPrompt"
	KeyNamespace          = "namespace"
	KeyPreserve           = "preserve"
	KeyUseHTTPPath        = "useHttpPath"
	KeyHTTPProxy          = "httpProxy"
	KeyTokenDuration      = "tokenDuration"
	KeyCredentialStore    = "credentialStore"
	KeyFederatedTokenFile = "federatedTokenFile"
	KeyWriteLog           = "writelog"
	KeyOAuthClientID      = "oauthClientId"
	KeyGitHubAPI          = "githubApiUrl"

	// KeyProxy is read from the "http" section.
	KeyProxy = "proxy"
)

const (
	// DefaultNamespace prefixes every store key.
	DefaultNamespace = "git"

	// DefaultValidate is on: stored secrets are checked before use.
	DefaultValidate = true

	// DefaultModalPrompt opens the browser for interactive OAuth logons.
	DefaultModalPrompt = true

	// DefaultOAuthClientID is the public client registered for git.
	DefaultOAuthClientID = "872cd9fa-d31f-45e0-9eab-6e460a02d1f1"

	// MaxTokenDuration caps requested personal token lifetimes.
	MaxTokenDuration = 365 * 24 * time.Hour
)
