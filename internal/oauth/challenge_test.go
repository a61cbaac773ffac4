package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChallenge(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		scheme    string
		params    map[string]string
		authority string
		bearer    bool
	}{
		{
			name:   "bare scheme",
			header: "Bearer",
			scheme: "Bearer",
			params: map[string]string{},
			bearer: true,
		},
		{
			name:      "unquoted authorization_uri",
			header:    "Bearer authorization_uri=https://login.microsoftonline.com/72f988bf-86f1-41af-91ab-2d7cd011db47",
			scheme:    "Bearer",
			params:    map[string]string{"authorization_uri": "https://login.microsoftonline.com/72f988bf-86f1-41af-91ab-2d7cd011db47"},
			authority: "https://login.microsoftonline.com/72f988bf-86f1-41af-91ab-2d7cd011db47",
			bearer:    true,
		},
		{
			name:      "quoted realm url",
			header:    `Bearer realm="https://auth.example.com", scope="openid profile"`,
			scheme:    "Bearer",
			params:    map[string]string{"realm": "https://auth.example.com", "scope": "openid profile"},
			authority: "https://auth.example.com",
			bearer:    true,
		},
		{
			name:   "basic realm",
			header: `Basic realm="git"`,
			scheme: "Basic",
			params: map[string]string{"realm": "git"},
		},
		{
			name:   "error parameters",
			header: `Bearer error="invalid_token", Error_Description="The token has expired"`,
			scheme: "Bearer",
			params: map[string]string{"error": "invalid_token", "error_description": "The token has expired"},
			bearer: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseChallenge(tt.header)
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, c.Scheme)
			assert.Equal(t, tt.params, c.Params)
			assert.Equal(t, tt.authority, c.AuthorizationURI())
			assert.Equal(t, tt.bearer, c.IsBearer())
		})
	}

	_, err := ParseChallenge("  ")
	assert.Error(t, err)
}

func TestParseChallenges(t *testing.T) {
	got := ParseChallenges([]string{"", `Basic realm="x"`, "Bearer authorization_uri=https://login.example.com/t"})
	require.Len(t, got, 2)
	assert.Equal(t, "Basic", got[0].Scheme)
	assert.Equal(t, "https://login.example.com/t", got[1].AuthorizationURI())
}
