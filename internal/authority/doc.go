// Package authority implements the identity-provider families the helper
// can acquire credentials from.
//
// Every authority shares one lifecycle (Authority): read, write and delete
// stored secrets, and check a credential against the remote provider.
// OAuth-backed DevOps authorities add silent refresh and logons
// (OAuthAuthority); the GitHub authority adds a single interactive
// handshake (LogonAuthority). Variant is the closed set of these shapes,
// discriminated by Kind, which the resolution engine dispatches on.
//
// Detector implements auto-detection for targets with no configured
// authority.
package authority
