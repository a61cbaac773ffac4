// Package config resolves the per-invocation policy of the credential
// helper.
//
// Settings are looked up through a Lookup chain, highest precedence first:
//
//  1. environment overrides (GCM_AUTHORITY, GCM_INTERACTIVE, ...)
//  2. git config, using `git config --get-urlmatch` so URL-specific
//     credential.<url>.<key> entries apply
//  3. the YAML file ~/.config/credmgr/config.yaml
//  4. built-in defaults
//
// NewOperation turns the looked-up values into an Operation, the immutable
// policy object handed to the resolution engine. Nothing in this package
// caches state across invocations.
package config
