// Package resolve is the credential resolution engine.
//
// For every authority variant it builds an ordered chain of acquisition
// strategies (cached, refresh, non-interactive logon, interactive logon).
// Each strategy reports Success, Skip or Fail; Run evaluates the chain
// left to right and stops at the first success. Skip rules follow the
// interactivity policy, and a strategy whose credential fails validation
// counts as failed.
//
// Engine is the surface the CLI uses: Resolve, Store and Erase.
package resolve
