package authority

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credmgr/internal/config"
	"credmgr/internal/oauth"
	"credmgr/internal/secret"
	"credmgr/internal/testing/mock"
)

func TestFactory_New(t *testing.T) {
	var modes []bool
	f := &Factory{
		Vault:    secret.NewMemoryVault(),
		Prompter: &fakePrompter{},
		Present: func(modal bool) oauth.URLPresenter {
			modes = append(modes, modal)
			return func(string) error { return nil }
		},
	}
	op := newOperation(t, "https://dev.azure.com/org")

	tests := []struct {
		det  config.Detection
		kind Kind
	}{
		{config.Detection{Kind: KindBasic}, KindBasic},
		{config.Detection{Kind: KindAzureDirectory, TenantID: uuid.New()}, KindAzureDirectory},
		{config.Detection{Kind: KindMicrosoftAccount}, KindMicrosoftAccount},
		{config.Detection{Kind: KindGitHub}, KindGitHub},
		{config.Detection{Kind: KindIntegrated}, KindIntegrated},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			v, err := f.New(op, tt.det)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind)
			assert.NoError(t, v.Validate())
			assert.Equal(t, tt.kind, v.Authority().Kind())
		})
	}
	assert.Equal(t, []bool{true, true}, modes)

	v, err := f.New(op, config.Detection{Kind: KindAzureDirectory, TenantID: tests[1].det.TenantID})
	require.NoError(t, err)
	assert.Equal(t, tests[1].det.TenantID, v.OAuth.(*DevOps).TenantID())

	_, err = f.New(op, config.Detection{Kind: config.AuthorityAuto})
	assert.Error(t, err)
}

func TestFactory_StoreFollowsOperation(t *testing.T) {
	f := &Factory{Vault: secret.NewMemoryVault()}
	op := newOperation(t, "https://git.example.com/team/repo")
	op.Namespace = "work"
	op.UseHTTPPath = true

	store := f.Store(op)
	assert.Equal(t, "work", store.Namespace())
	assert.Contains(t, store.CredentialKey(op.Target), "team/repo")
}

func TestFactory_HTTPClient(t *testing.T) {
	custom := &http.Client{}
	f := &Factory{HTTPClient: custom}
	op := newOperation(t, "https://git.example.com")
	assert.Same(t, custom, f.HTTP(op))

	f = &Factory{SessionID: uuid.New()}
	c := f.HTTP(op)
	assert.Equal(t, DefaultHTTPTimeout, c.Timeout)
	assert.IsType(t, &headerTransport{}, c.Transport)
}

func TestFactory_Detect(t *testing.T) {
	org := mock.NewDevOpsServer(mock.DevOpsConfig{Tenant: uuid.Nil.String()})
	defer org.Close()

	f := &Factory{Vault: secret.NewMemoryVault()}
	op := newOperation(t, org.URL())
	assert.Equal(t, KindMicrosoftAccount, f.Detect(context.Background(), op).Kind)
}

func TestVariant_ValidateEmpty(t *testing.T) {
	assert.Error(t, Variant{Kind: KindBasic}.Validate())
	assert.Error(t, Variant{Kind: KindGitHub}.Validate())
	assert.NoError(t, BasicVariant(NewBasic(nil, nil, nil)).Validate())
}
