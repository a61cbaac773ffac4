// Package oauth implements the OAuth 2.0 plumbing shared by the DevOps
// authorities: authorization server metadata discovery, refresh, the
// authorization code flow with PKCE over a loopback redirect, and the
// client-assertion grant used for federated (workload identity) logons.
//
// The protocol work is delegated to golang.org/x/oauth2; this package adds
// metadata discovery with caching, the local callback server and the
// browser hand-off.
package oauth
