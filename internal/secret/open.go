package secret

import (
	"fmt"
	"strings"

	"credmgr/pkg/logging"
)

// Vault backends selectable with the credentialStore setting.
const (
	BackendAuto          = "auto"
	BackendSecretService = "secretservice"
	BackendFile          = "file"
	BackendMemory        = "memory"
)

// OpenVault returns the vault for backend. "auto" prefers the Secret Service
// and falls back to files when no session bus is reachable.
func OpenVault(backend, fileDir string) (Vault, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendAuto:
		v, err := NewSecretServiceVault()
		if err == nil {
			return v, nil
		}
		logging.Debug("SecretStore", "secret service unavailable, using file vault: %v", err)
		return NewFileVault(fileDir)
	case BackendSecretService:
		return NewSecretServiceVault()
	case BackendFile:
		return NewFileVault(fileDir)
	case BackendMemory:
		return NewMemoryVault(), nil
	default:
		return nil, fmt.Errorf("unknown credential store backend %q", backend)
	}
}
