package secret

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when no entry exists for a key.
var ErrNotFound = errors.New("secret not found")

// Vault is the OS-level secret storage capability. Keys are opaque strings
// produced by Store. Get returns ErrNotFound for a missing key; Delete
// reports whether an entry existed and does not fail for a missing key.
type Vault interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) (bool, error)
}

// VaultError is an unrecoverable fault of the underlying vault. It is fatal
// to the invocation, unlike ErrNotFound.
type VaultError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	return fmt.Sprintf("secret vault %s %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *VaultError) Unwrap() error {
	return e.Err
}

// MemoryVault is a Vault held in process memory.
type MemoryVault struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryVault returns an empty MemoryVault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{entries: make(map[string][]byte)}
}

// Get implements Vault.
func (v *MemoryVault) Get(key string) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	value, ok := v.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Set implements Vault.
func (v *MemoryVault) Set(key string, value []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.entries[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements Vault.
func (v *MemoryVault) Delete(key string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, ok := v.entries[key]
	delete(v.entries, key)
	return ok, nil
}

// Keys returns the stored keys. Tests use it to inspect the key space.
func (v *MemoryVault) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	keys := make([]string, 0, len(v.entries))
	for k := range v.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries.
func (v *MemoryVault) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}
