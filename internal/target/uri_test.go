package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected URI
	}{
		{
			name:     "absolute https with path",
			raw:      "https://example.com/repo",
			expected: URI{Scheme: "https", Host: "example.com", Path: "repo"},
		},
		{
			name:     "bare host promoted to https",
			raw:      "example.com",
			expected: URI{Scheme: "https", Host: "example.com"},
		},
		{
			name:     "bare host with port and path",
			raw:      "git.example.com:8443/team/repo.git",
			expected: URI{Scheme: "https", Host: "git.example.com", Port: 8443, Path: "team/repo.git"},
		},
		{
			name:     "default port dropped",
			raw:      "https://Example.COM:443/",
			expected: URI{Scheme: "https", Host: "example.com"},
		},
		{
			name:     "http keeps non-default port",
			raw:      "HTTP://localhost:8080",
			expected: URI{Scheme: "http", Host: "localhost", Port: 8080},
		},
		{
			name:     "userinfo is not part of identity",
			raw:      "https://alice@example.com/repo/",
			expected: URI{Scheme: "https", Host: "example.com", Path: "repo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalize_Invalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "https://", "https://host:99999", "://nohost", "https://exa mple.com"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Normalize(raw)
			assert.ErrorIs(t, err, ErrInvalidURI)
		})
	}
}

func TestFromParts(t *testing.T) {
	u, err := FromParts("https", "example.com:8443", "/org/repo")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com:8443/org/repo", u.String())

	u, err = FromParts("", "example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
}

func TestURI_KeyAndEqual(t *testing.T) {
	a, err := Normalize("https://example.com/repo-a")
	require.NoError(t, err)
	b, err := Normalize("https://example.com/repo-b")
	require.NoError(t, err)

	assert.True(t, a.Equal(b, false))
	assert.False(t, a.Equal(b, true))
	assert.Equal(t, "https://example.com", a.Key(false))
	assert.Equal(t, "https://example.com/repo-a", a.Key(true))
}

func TestURI_Join(t *testing.T) {
	u, err := Normalize("https://dev.example.com/org/project")
	require.NoError(t, err)

	assert.Equal(t, "https://dev.example.com/org/project/_apis/connectionData", u.Join("_apis/connectionData"))
	assert.Equal(t, "https://dev.example.com/info", u.Base().Join("/info"))
}
