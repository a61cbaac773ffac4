package token

import (
	"fmt"
	"strings"
)

// Type determines how a token is used.
type Type int

const (
	// TypeUnknown is the zero value; it is never stored.
	TypeUnknown Type = iota
	// TypeAccess is a bearer token presented to the identity provider.
	TypeAccess
	// TypeRefresh is exchanged for a new access token.
	TypeRefresh
	// TypePersonal is a host-issued personal access token used as a git password.
	TypePersonal
	// TypeFederated is an ambient identity assertion exchanged for an access token.
	TypeFederated
	// TypeTest is only used by tests.
	TypeTest
)

// Types lists every storable token type, in purge order.
var Types = []Type{TypeAccess, TypeRefresh, TypePersonal, TypeFederated, TypeTest}

// String returns the lower-case name used in store keys and logs.
func (t Type) String() string {
	switch t {
	case TypeAccess:
		return "access"
	case TypeRefresh:
		return "refresh"
	case TypePersonal:
		return "personal"
	case TypeFederated:
		return "federated"
	case TypeTest:
		return "test"
	default:
		return "unknown"
	}
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "access":
		return TypeAccess, nil
	case "refresh":
		return TypeRefresh, nil
	case "personal":
		return TypePersonal, nil
	case "federated":
		return TypeFederated, nil
	case "test":
		return TypeTest, nil
	default:
		return TypeUnknown, fmt.Errorf("unknown token type %q", s)
	}
}

// IsBearer reports whether tokens of this type are presented as bearer
// credentials rather than exchanged for another token.
func (t Type) IsBearer() bool {
	return t == TypeAccess || t == TypePersonal || t == TypeTest
}

// CanBeCompact reports whether the host can issue this type in its short,
// compact representation.
func (t Type) CanBeCompact() bool {
	return t == TypePersonal
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
