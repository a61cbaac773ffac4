package token

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomScopes returns n scopes drawn from the whole vocabulary of V.
func randomScopes[V Vocabulary](r *rand.Rand, n int) []Scope[V] {
	var v V
	width := len(v.Grants())
	out := make([]Scope[V], 0, n+2)
	out = append(out, Scope[V]{}, Scope[V]{bits: 1<<uint(width) - 1})
	for i := 0; i < n; i++ {
		out = append(out, Scope[V]{bits: r.Uint64() & (1<<uint(width) - 1)})
	}
	return out
}

func checkAlgebra[V Vocabulary](t *testing.T, scopes []Scope[V]) {
	t.Helper()
	var empty Scope[V]
	for _, a := range scopes {
		assert.Equal(t, a, a.Union(a), "union must be idempotent")
		assert.Equal(t, a, a.Union(empty), "empty scope must be the identity")
		assert.True(t, a.Contains(empty))
		for _, b := range scopes {
			assert.Equal(t, a.Union(b), b.Union(a), "union must be commutative")
			assert.True(t, a.Union(b).Contains(a))
			for _, c := range scopes[:4] {
				assert.Equal(t, a.Union(b).Union(c), a.Union(b.Union(c)), "union must be associative")
			}
		}
	}
}

func checkRoundTrip[V Vocabulary](t *testing.T, scopes []Scope[V]) {
	t.Helper()
	for _, s := range scopes {
		assert.Equal(t, s, ParseScope[V](s.String()))
	}
}

func TestScope_Algebra(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	checkAlgebra(t, randomScopes[DevOpsGrants](r, 12))
	checkAlgebra(t, randomScopes[GitHubGrants](r, 12))
}

func TestScope_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	checkRoundTrip(t, randomScopes[DevOpsGrants](r, 64))
	checkRoundTrip(t, randomScopes[GitHubGrants](r, 64))

	// every single grant on its own
	var devops DevOpsGrants
	for _, g := range devops.Grants() {
		s := Grant[DevOpsGrants](g)
		assert.Equal(t, g, s.String())
		assert.Equal(t, s, ParseScope[DevOpsGrants](g))
	}
}

func TestScope_StringIsCanonical(t *testing.T) {
	a := Combine(DevOpsPackagingWrite, DevOpsCodeWrite, DevOpsBuild)
	b := Combine(DevOpsBuild, DevOpsCodeWrite, DevOpsPackagingWrite)

	assert.Equal(t, "vso.build vso.code_write vso.packaging_write", a.String())
	assert.Equal(t, a.String(), b.String())
}

func TestScope_EmptyGrantsNothing(t *testing.T) {
	var empty GitHubScope
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, "", empty.String())
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.Contains(GitHubRepo))
}

func TestParseScope_IgnoresUnknown(t *testing.T) {
	s := ParseScope[GitHubGrants]("repo, future:grant gist  bogus")
	assert.Equal(t, GitHubGitScope, s)
	assert.Equal(t, 2, s.Len())
}

func TestScope_Contains(t *testing.T) {
	assert.True(t, DevOpsGitScope.Contains(DevOpsCodeWrite))
	assert.False(t, DevOpsGitScope.Contains(DevOpsCodeManage))
	assert.False(t, DevOpsCodeWrite.Contains(DevOpsGitScope))
}

func TestGrant_PanicsOnUnknownName(t *testing.T) {
	assert.Panics(t, func() { Grant[GitHubGrants]("vso.code") })
}

func TestScope_JSON(t *testing.T) {
	type payload struct {
		Scope GitHubScope `json:"scope"`
	}

	data, err := json.Marshal(payload{Scope: GitHubGitScope})
	require.NoError(t, err)
	assert.JSONEq(t, `{"scope":"gist repo"}`, string(data))

	var out payload
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, GitHubGitScope, out.Scope)
}
