package authority

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credmgr/internal/secret"
	"credmgr/internal/testing/mock"
)

func TestBasic_ValidateCredentials(t *testing.T) {
	git := mock.NewGitServer(map[string]string{"alice": "s3cret"})
	defer git.Close()

	store, _ := newStore()
	b := NewBasic(store, nil, nil)
	u := mustTarget(t, git.RepoURL(mock.DefaultRepoPath))

	assert.True(t, b.ValidateCredentials(context.Background(), u, secret.NewCredential("alice", "s3cret")))
	assert.False(t, b.ValidateCredentials(context.Background(), u, secret.NewCredential("alice", "wrong")))
	assert.Equal(t, 2, git.Probes())

	git.Close()
	assert.False(t, b.ValidateCredentials(context.Background(), u, secret.NewCredential("alice", "s3cret")))
}

func TestBasic_ValidateCredentialsWithoutPath(t *testing.T) {
	git := mock.NewGitServer(map[string]string{"alice": "s3cret"})
	defer git.Close()

	store, _ := newStore()
	b := NewBasic(store, nil, nil)
	u := mustTarget(t, git.URL())

	// the host root has no ref advertisement; 404 is not a refusal
	assert.True(t, b.ValidateCredentials(context.Background(), u, secret.NewCredential("alice", "s3cret")))
	assert.Equal(t, 1, git.Probes())
}

func TestBasicAccepted(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, true},
		{http.StatusNotFound, true},
		{http.StatusMovedPermanently, true},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, basicAccepted(tt.status))
		})
	}
}

func TestBasic_Lifecycle(t *testing.T) {
	store, vault := newStore()
	b := NewBasic(store, nil, nil)
	u := mustTarget(t, "https://git.example.com/repo")

	_, err := b.GetCredentials(u)
	assert.ErrorIs(t, err, secret.ErrNotFound)

	require.NoError(t, b.SetCredentials(u, secret.NewCredential("alice", "s3cret")))
	got, err := b.GetCredentials(u)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, KindBasic, b.Kind())

	require.NoError(t, b.DeleteCredentials(u))
	require.NoError(t, b.DeleteCredentials(u))
	assert.Zero(t, vault.Len())
}

func TestBasic_PromptCredentials(t *testing.T) {
	u := mustTarget(t, "https://git.example.com/repo")

	t.Run("writes through", func(t *testing.T) {
		store, _ := newStore()
		p := &fakePrompter{cred: secret.NewCredential("alice", "s3cret")}
		b := NewBasic(store, nil, p)

		ok, err := b.PromptCredentials(context.Background(), u)
		require.NoError(t, err)
		assert.True(t, ok)

		stored, err := store.ReadCredential(u)
		require.NoError(t, err)
		assert.Equal(t, "s3cret", stored.Password)
	})

	t.Run("empty answer", func(t *testing.T) {
		store, vault := newStore()
		b := NewBasic(store, nil, &fakePrompter{})

		ok, err := b.PromptCredentials(context.Background(), u)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, vault.Len())
	})

	t.Run("cancelled", func(t *testing.T) {
		store, _ := newStore()
		cancelled := errors.New("cancelled")
		b := NewBasic(store, nil, &fakePrompter{credErr: cancelled})

		_, err := b.PromptCredentials(context.Background(), u)
		assert.ErrorIs(t, err, cancelled)
	})

	t.Run("no prompter", func(t *testing.T) {
		store, _ := newStore()
		_, err := NewBasic(store, nil, nil).PromptCredentials(context.Background(), u)
		assert.Error(t, err)
	})
}

func TestIntegrated(t *testing.T) {
	i := NewIntegrated()
	u := mustTarget(t, "https://tfs.corp.example.com/collection")

	c, err := i.GetCredentials(u)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.NoError(t, i.SetCredentials(u, secret.NewCredential("x", "y")))
	assert.NoError(t, i.DeleteCredentials(u))
	assert.True(t, i.ValidateCredentials(context.Background(), u, c))
	assert.Equal(t, KindIntegrated, i.Kind())
}
