package secret

import (
	"log/slog"
)

// Credential is a username and secret pair. OAuth-backed authorities may
// leave Username empty and carry a bearer token in Password.
//
// SECURITY: Password is never logged.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewCredential returns a credential.
func NewCredential(username, password string) Credential {
	return Credential{Username: username, Password: password}
}

// IsEmpty reports whether both username and password are empty.
func (c Credential) IsEmpty() bool {
	return c.Username == "" && c.Password == ""
}

// String implements fmt.Stringer without revealing the password.
func (c Credential) String() string {
	return "credential{username: " + c.Username + ", password: [REDACTED]}"
}

// GoString implements fmt.GoStringer for %#v.
func (c Credential) GoString() string {
	return "secret.Credential{Username: " + c.Username + ", Password: [REDACTED]}"
}

// LogValue implements slog.LogValuer.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.Bool("has_password", c.Password != ""),
	)
}
