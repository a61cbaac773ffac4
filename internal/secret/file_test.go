package secret

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileVault_RoundTrip(t *testing.T) {
	vault, err := NewFileVault(t.TempDir())
	require.NoError(t, err)

	_, err = vault.Get("git:https://example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, vault.Set("git:https://example.com", []byte(`{"username":"alice"}`)))
	data, err := vault.Get("git:https://example.com")
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"alice"}`, string(data))

	existed, err := vault.Delete("git:https://example.com")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = vault.Delete("git:https://example.com")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestFileVault_Persistence(t *testing.T) {
	dir := t.TempDir()

	first, err := NewFileVault(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set("k", []byte("v")))

	second, err := NewFileVault(dir)
	require.NoError(t, err)
	data, err := second.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))
}

func TestFileVault_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not enforced on windows")
	}

	dir := filepath.Join(t.TempDir(), "secrets")
	vault, err := NewFileVault(dir)
	require.NoError(t, err)
	require.NoError(t, vault.Set("k", []byte("v")))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	fileInfo, err := entries[0].Info()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fileInfo.Mode().Perm())
	assert.NotContains(t, entries[0].Name(), "k.json", "file names are hashed")
}

func TestFileVault_WithStore(t *testing.T) {
	vault, err := NewFileVault(t.TempDir())
	require.NoError(t, err)

	store := NewStore(vault, "git", false)
	u := mustURI(t, "https://example.com/repo")

	require.NoError(t, store.WriteCredential(u, NewCredential("alice", "s3cret")))
	cred, err := store.ReadCredential(u)
	require.NoError(t, err)
	assert.Equal(t, NewCredential("alice", "s3cret"), cred)
}

func TestFileVault_CorruptFileReadsAsAbsent(t *testing.T) {
	vault, err := NewFileVault(t.TempDir())
	require.NoError(t, err)

	store := NewStore(vault, "git", false)
	u := mustURI(t, "https://example.com/repo")
	key := store.CredentialKey(u)

	require.NoError(t, os.WriteFile(vault.path(key), []byte("{not json"), 0600))

	_, err = vault.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.ReadCredential(u)
	assert.ErrorIs(t, err, ErrNotFound)
	var vaultErr *VaultError
	assert.False(t, errors.As(err, &vaultErr))

	require.NoError(t, store.WriteCredential(u, NewCredential("alice", "s3cret")))
	cred, err := store.ReadCredential(u)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cred.Password)
}

func TestOpenVault(t *testing.T) {
	v, err := OpenVault(BackendMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryVault{}, v)

	v, err = OpenVault(BackendFile, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileVault{}, v)

	_, err = OpenVault("carrier-pigeon", "")
	assert.Error(t, err)
}
