package authority

import (
	"context"
	"errors"
	"io"
	"net/http"

	"credmgr/internal/secret"
	"credmgr/internal/target"
	"credmgr/pkg/logging"
)

// Basic manages raw username/password credentials.
type Basic struct {
	store    *secret.Store
	http     *http.Client
	prompter Prompter
}

// NewBasic returns a Basic authority over store.
func NewBasic(store *secret.Store, httpClient *http.Client, prompter Prompter) *Basic {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Basic{store: store, http: httpClient, prompter: prompter}
}

func (b *Basic) Kind() Kind { return KindBasic }

func (b *Basic) GetCredentials(t target.URI) (secret.Credential, error) {
	return b.store.ReadCredential(t)
}

func (b *Basic) SetCredentials(t target.URI, c secret.Credential) error {
	return b.store.WriteCredential(t, c)
}

func (b *Basic) DeleteCredentials(t target.URI) error {
	_, err := b.store.DeleteCredential(t)
	return err
}

// ValidateCredentials probes the smart-HTTP discovery endpoint of the
// repository with c. Only an authentication refusal (401, 403), a server
// fault or a transport failure rejects c. A target without a path has no
// ref advertisement, so a 404 there says nothing about c.
func (b *Basic) ValidateCredentials(ctx context.Context, t target.URI, c secret.Credential) bool {
	endpoint := t.Join("info/refs?service=git-upload-pack")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	req.SetBasicAuth(c.Username, c.Password)

	resp, err := b.http.Do(req)
	if err != nil {
		logging.Debug("Basic", "Validation of %s failed: %v", t, transportError("basic", endpoint, err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	logging.Debug("Basic", "Validation of %s returned %d", t, resp.StatusCode)
	return basicAccepted(resp.StatusCode)
}

func basicAccepted(status int) bool {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return false
	case status >= http.StatusInternalServerError:
		return false
	}
	return true
}

// PromptCredentials asks the user for a credential and writes it through.
func (b *Basic) PromptCredentials(ctx context.Context, t target.URI) (bool, error) {
	if b.prompter == nil {
		return false, errors.New("no prompter configured")
	}
	cred, err := b.prompter.PromptForCredentials(ctx, t, "Enter credentials for "+t.Base().String())
	if err != nil {
		return false, err
	}
	if cred.IsEmpty() {
		return false, nil
	}
	if err := b.SetCredentials(t, cred); err != nil {
		return false, err
	}
	return true, nil
}
