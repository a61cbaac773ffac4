package secret

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"credmgr/pkg/logging"
)

// DefaultStorageDir is the default directory for file-backed secrets,
// relative to the user's home directory.
const DefaultStorageDir = ".config/credmgr/secrets"

// FileVault stores each entry as a JSON file named after a hash of its key.
//
// SECURITY:
//   - Files are created with 0600 permissions (owner read/write only)
//   - The storage directory is created with 0700 permissions
//   - File names are hashes, so target URLs are not visible in a listing
type FileVault struct {
	mu  sync.Mutex
	dir string
}

// fileEntry is the on-disk envelope of one vault entry.
type fileEntry struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFileVault returns a FileVault rooted at dir, creating it if needed.
// An empty dir selects DefaultStorageDir under the home directory.
func NewFileVault(dir string) (*FileVault, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, DefaultStorageDir)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create secret storage directory: %w", err)
	}

	return &FileVault{dir: dir}, nil
}

// Get implements Vault.
func (v *FileVault) Get(key string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	// #nosec G304 -- path is derived from a hash of the key
	data, err := os.ReadFile(v.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Unreadable files read as absent so the next Set replaces them.
		logging.Warn("SecretStore", "discarding unreadable secret file %s: %v", filepath.Base(v.path(key)), err)
		return nil, ErrNotFound
	}
	// Hash collision or a file copied in from elsewhere.
	if entry.Key != key {
		return nil, ErrNotFound
	}

	return entry.Value, nil
}

// Set implements Vault.
func (v *FileVault) Set(key string, value []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := json.MarshalIndent(fileEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal secret: %w", err)
	}

	// Write to a temp file and rename so readers never see a partial entry.
	tmp, err := os.CreateTemp(v.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create secret file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict secret file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write secret file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write secret file: %w", err)
	}

	if err := os.Rename(tmpName, v.path(key)); err != nil {
		return fmt.Errorf("failed to write secret file: %w", err)
	}
	return nil
}

// Delete implements Vault.
func (v *FileVault) Delete(key string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	err := os.Remove(v.path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Dir returns the storage directory.
func (v *FileVault) Dir() string {
	return v.dir
}

// path returns the file path for key. The first 16 bytes of a SHA-256 hash
// give filesystem-safe names.
func (v *FileVault) path(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(v.dir, hex.EncodeToString(hash[:16])+".json")
}
