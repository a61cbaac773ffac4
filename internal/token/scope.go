package token

import (
	"fmt"
	"math/bits"
	"strings"
)

// Vocabulary is a provider's grant vocabulary. Grants returns the grant names
// in canonical order; a grant's index is its bit in a Scope. Implementations
// are zero-size marker types so that scopes from different providers cannot
// be mixed.
type Vocabulary interface {
	Grants() []string
}

// Scope is a set of capability grants drawn from vocabulary V.
// The zero value is the empty scope, which grants nothing.
type Scope[V Vocabulary] struct {
	bits uint64
}

// Grant returns the scope holding the single named grant. It panics on a
// name outside V, so it is meant for package-level declarations.
func Grant[V Vocabulary](name string) Scope[V] {
	var v V
	for i, g := range v.Grants() {
		if g == name {
			return Scope[V]{bits: 1 << uint(i)}
		}
	}
	panic(fmt.Sprintf("token: grant %q is not in vocabulary %T", name, v))
}

// Union combines scopes by set union.
func (s Scope[V]) Union(other Scope[V]) Scope[V] {
	return Scope[V]{bits: s.bits | other.bits}
}

// Combine is the union of any number of scopes.
func Combine[V Vocabulary](scopes ...Scope[V]) Scope[V] {
	var out Scope[V]
	for _, s := range scopes {
		out = out.Union(s)
	}
	return out
}

// Contains reports whether every grant in subset is also in s.
func (s Scope[V]) Contains(subset Scope[V]) bool {
	return s.bits&subset.bits == subset.bits
}

// IsEmpty reports whether s grants nothing.
func (s Scope[V]) IsEmpty() bool {
	return s.bits == 0
}

// Len returns the number of grants in s.
func (s Scope[V]) Len() int {
	return bits.OnesCount64(s.bits)
}

// Names returns the grant names in canonical vocabulary order.
func (s Scope[V]) Names() []string {
	var v V
	var names []string
	for i, g := range v.Grants() {
		if s.bits&(1<<uint(i)) != 0 {
			names = append(names, g)
		}
	}
	return names
}

// String serializes s as a space-delimited list of grant names in canonical
// order, the form used in authorization requests.
func (s Scope[V]) String() string {
	return strings.Join(s.Names(), " ")
}

// ParseScope is the inverse of Scope.String. Grant names may be separated by
// spaces or commas; unknown names are ignored.
func ParseScope[V Vocabulary](s string) Scope[V] {
	var v V
	index := make(map[string]int, len(v.Grants()))
	for i, g := range v.Grants() {
		index[g] = i
	}

	var out Scope[V]
	for _, field := range strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' }) {
		if i, ok := index[field]; ok {
			out.bits |= 1 << uint(i)
		}
	}
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope[V]) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope[V]) UnmarshalText(b []byte) error {
	*s = ParseScope[V](string(b))
	return nil
}
