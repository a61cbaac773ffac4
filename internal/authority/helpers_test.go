package authority

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"credmgr/internal/secret"
	"credmgr/internal/target"
)

func mustTarget(t *testing.T, raw string) target.URI {
	t.Helper()
	u, err := target.Normalize(raw)
	require.NoError(t, err)
	return u
}

func newStore() (*secret.Store, *secret.MemoryVault) {
	v := secret.NewMemoryVault()
	return secret.NewStore(v, "git", false), v
}

// followRedirects plays the browser for interactive logons.
func followRedirects(authURL string) error {
	resp, err := http.Get(authURL)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

type fakePrompter struct {
	mu        sync.Mutex
	cred      secret.Credential
	credErr   error
	code      string
	codeErr   error
	credCalls int
	codeKinds []string
}

func (p *fakePrompter) PromptForCredentials(_ context.Context, _ target.URI, _ string) (secret.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.credCalls++
	return p.cred, p.credErr
}

func (p *fakePrompter) PromptForAuthCode(_ context.Context, _ target.URI, kind string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codeKinds = append(p.codeKinds, kind)
	return p.code, p.codeErr
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// offlineClient fails every request and counts them.
func offlineClient(calls *int) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		*calls++
		return nil, errors.New("dial tcp: connection refused")
	})}
}
