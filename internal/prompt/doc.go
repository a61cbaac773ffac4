// Package prompt talks to the user on the terminal: it asks for usernames,
// passwords and second-factor codes, shows authorization URLs and draws a
// spinner while a browser logon is pending.
//
// git owns the helper's stdin and stdout for the credential protocol, so
// prompts go through the controlling terminal, never the standard streams.
package prompt
