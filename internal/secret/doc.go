// Package secret persists credentials and tokens for remote targets.
//
// A Store is a thin synchronous facade over a Vault, the OS-level secret
// storage capability. Entries are keyed by (namespace, converted target
// name); the conversion is pluggable:
//
//   - SimpleTargetName keys by scheme, host and port, sharing one secret
//     across every repository on a host.
//   - PathedTargetName also includes the path, giving one secret per path.
//
// Switching strategies changes the key space. Secrets written under one
// strategy are not visible under the other.
//
// Vault implementations:
//
//   - MemoryVault: process-local map, used in tests and as a fallback
//   - FileVault: one JSON file per entry, 0600 permissions
//   - SecretServiceVault: the freedesktop Secret Service over D-Bus
//
// SECURITY: secret values are never logged. Credential and token.Token both
// redact themselves when formatted.
package secret
