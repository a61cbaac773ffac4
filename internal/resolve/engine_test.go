package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credmgr/internal/authority"
	"credmgr/internal/config"
	"credmgr/internal/secret"
	"credmgr/internal/target"
	"credmgr/internal/testing/mock"
)

// countingPrompter records prompts and answers with a fixed credential.
type countingPrompter struct {
	cred    secret.Credential
	prompts int
}

func (p *countingPrompter) PromptForCredentials(context.Context, target.URI, string) (secret.Credential, error) {
	p.prompts++
	return p.cred, nil
}

func (p *countingPrompter) PromptForAuthCode(context.Context, target.URI, string) (string, error) {
	p.prompts++
	return "", nil
}

func basicOperation(t *testing.T, raw string, settings config.MapLookup) *config.Operation {
	t.Helper()
	lookup := config.MapLookup{"credential.authority": "basic"}
	for k, v := range settings {
		lookup[k] = v
	}
	op, err := config.NewOperation(lookup, func(string) string { return "" }, raw)
	require.NoError(t, err)
	return op
}

func TestScenario_BasicCachedCredential(t *testing.T) {
	vault := secret.NewMemoryVault()
	prompter := &countingPrompter{cred: secret.NewCredential("mallory", "wrong")}
	engine := NewEngine(&authority.Factory{Vault: vault, Prompter: prompter})

	op := basicOperation(t, "https://example.com/repo", config.MapLookup{
		"credential.interactive": "auto",
		"credential.validate":    "false",
	})
	require.NoError(t, engine.Store(context.Background(), op, secret.NewCredential("alice", "s3cret")))

	cred, err := engine.Resolve(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, secret.NewCredential("alice", "s3cret"), cred)
	assert.Zero(t, prompter.prompts)
}

func TestScenario_BasicEmptyStoreNeverInteractive(t *testing.T) {
	prompter := &countingPrompter{cred: secret.NewCredential("alice", "s3cret")}
	engine := NewEngine(&authority.Factory{Vault: secret.NewMemoryVault(), Prompter: prompter})

	op := basicOperation(t, "https://example.com/repo", config.MapLookup{
		"credential.interactive": "never",
		"credential.validate":    "false",
	})

	_, err := engine.Resolve(context.Background(), op)
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.Zero(t, prompter.prompts)
}

func TestScenario_BasicPromptWritesThrough(t *testing.T) {
	vault := secret.NewMemoryVault()
	prompter := &countingPrompter{cred: secret.NewCredential("alice", "s3cret")}
	engine := NewEngine(&authority.Factory{Vault: vault, Prompter: prompter})

	op := basicOperation(t, "https://example.com/repo", config.MapLookup{"credential.validate": "false"})

	cred, err := engine.Resolve(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, "alice", cred.Username)
	assert.Equal(t, 1, prompter.prompts)

	cred, err = engine.Resolve(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cred.Password)
	assert.Equal(t, 1, prompter.prompts)
}

func TestScenario_BasicDefaultValidationWithoutPath(t *testing.T) {
	git := mock.NewGitServer(map[string]string{"alice": "s3cret"})
	defer git.Close()

	vault := secret.NewMemoryVault()
	prompter := &countingPrompter{cred: secret.NewCredential("alice", "s3cret")}
	engine := NewEngine(&authority.Factory{Vault: vault, Prompter: prompter})

	op := basicOperation(t, git.URL(), nil)
	require.True(t, op.ValidateCredentials)
	require.Empty(t, op.Target.Path)

	cred, err := engine.Resolve(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, secret.NewCredential("alice", "s3cret"), cred)
	assert.Equal(t, 1, prompter.prompts)
	assert.Equal(t, 1, vault.Len())

	op = basicOperation(t, git.URL(), nil)
	cred, err = engine.Resolve(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cred.Password)
	assert.Equal(t, 1, prompter.prompts, "stored credential is reused")
}

func TestScenario_BasicRejectedOnRepository(t *testing.T) {
	git := mock.NewGitServer(map[string]string{"alice": "s3cret"})
	defer git.Close()

	vault := secret.NewMemoryVault()
	prompter := &countingPrompter{cred: secret.NewCredential("alice", "s3cret")}
	engine := NewEngine(&authority.Factory{Vault: vault, Prompter: prompter})

	op := basicOperation(t, git.RepoURL(mock.DefaultRepoPath), config.MapLookup{"credential.useHttpPath": "true"})
	require.NoError(t, engine.Store(context.Background(), op, secret.NewCredential("alice", "stale")))

	cred, err := engine.Resolve(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cred.Password)
	assert.Equal(t, 1, prompter.prompts)
	assert.Equal(t, 2, git.Probes())
}

func TestScenario_NamespacesAreIndependent(t *testing.T) {
	vault := secret.NewMemoryVault()
	engine := NewEngine(&authority.Factory{Vault: vault})
	ctx := context.Background()

	settings := config.MapLookup{"credential.validate": "false", "credential.interactive": "never"}
	opA := basicOperation(t, "https://example.com/repo", settings)
	opB := basicOperation(t, "https://example.com/repo", config.MapLookup{
		"credential.validate":    "false",
		"credential.interactive": "never",
		"credential.namespace":   "work",
	})

	require.NoError(t, engine.Store(ctx, opA, secret.NewCredential("alice", "personal")))
	require.NoError(t, engine.Store(ctx, opB, secret.NewCredential("alice", "corporate")))
	assert.Equal(t, 2, vault.Len())

	credA, err := engine.Resolve(ctx, opA)
	require.NoError(t, err)
	credB, err := engine.Resolve(ctx, opB)
	require.NoError(t, err)
	assert.Equal(t, "personal", credA.Password)
	assert.Equal(t, "corporate", credB.Password)

	require.NoError(t, engine.Erase(ctx, opB))
	_, err = engine.Resolve(ctx, opB)
	assert.ErrorIs(t, err, ErrNotAcquired)

	credA, err = engine.Resolve(ctx, opA)
	require.NoError(t, err)
	assert.Equal(t, "personal", credA.Password)
}

func TestEngine_ErasePreserve(t *testing.T) {
	vault := secret.NewMemoryVault()
	engine := NewEngine(&authority.Factory{Vault: vault})
	ctx := context.Background()

	op := basicOperation(t, "https://example.com", config.MapLookup{"credential.preserve": "true"})
	require.NoError(t, engine.Store(ctx, op, secret.NewCredential("alice", "s3cret")))

	require.NoError(t, engine.Erase(ctx, op))
	assert.Equal(t, 1, vault.Len())

	op.PreserveCredentials = false
	require.NoError(t, engine.Erase(ctx, op))
	assert.Zero(t, vault.Len())

	// erasing again is not an error
	require.NoError(t, engine.Erase(ctx, op))
}

func TestEngine_StoreIgnoresEmptyCredential(t *testing.T) {
	vault := secret.NewMemoryVault()
	engine := NewEngine(&authority.Factory{Vault: vault})

	op := basicOperation(t, "https://example.com", nil)
	require.NoError(t, engine.Store(context.Background(), op, secret.Credential{}))
	assert.Zero(t, vault.Len())
}

func TestEngine_DetectionIsMemoised(t *testing.T) {
	f := &fakeGitHub{fakeBase: newFakeBase(authority.KindGitHub)}
	binder := &fakeBinder{
		variant:   authority.SourceHostVariant(f),
		detection: config.Detection{Kind: authority.KindGitHub},
	}
	engine := NewEngine(binder)

	op, err := config.NewOperation(config.Chain{}, func(string) string { return "" }, "https://github.com/org/repo")
	require.NoError(t, err)
	op.Interactivity = config.InteractivityNever

	_, err = engine.Resolve(context.Background(), op)
	assert.ErrorIs(t, err, ErrNotAcquired)
	_, err = engine.Resolve(context.Background(), op)
	assert.ErrorIs(t, err, ErrNotAcquired)

	assert.Equal(t, 1, binder.detects)
	require.Len(t, binder.bound, 2)
	assert.Equal(t, authority.KindGitHub, binder.bound[1].Kind)

	det, ok := op.Detected()
	require.True(t, ok)
	assert.Equal(t, authority.KindGitHub, det.Kind)
}

func TestEngine_ExplicitAuthoritySkipsDetection(t *testing.T) {
	binder := &fakeBinder{variant: authority.IntegratedVariant(authority.NewIntegrated())}
	engine := NewEngine(binder)

	op, err := config.NewOperation(config.MapLookup{"credential.authority": "integrated"}, func(string) string { return "" }, "https://tfs.corp.example")
	require.NoError(t, err)

	cred, err := engine.Resolve(context.Background(), op)
	require.NoError(t, err)
	assert.True(t, cred.IsEmpty())
	assert.Zero(t, binder.detects)
}

func TestEngine_UnboundVariantIsAnError(t *testing.T) {
	binder := &fakeBinder{variant: authority.Variant{Kind: authority.KindBasic}}
	engine := NewEngine(binder)

	op := basicOperation(t, "https://example.com", nil)
	_, err := engine.Resolve(context.Background(), op)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAcquired)
}
