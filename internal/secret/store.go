package secret

import (
	"encoding/json"
	"errors"
	"fmt"

	"credmgr/internal/target"
	"credmgr/internal/token"
	"credmgr/pkg/logging"
)

// DefaultNamespace is the namespace used when none is configured.
const DefaultNamespace = "git"

// TargetNameFunc converts a target into the target-name part of a store key.
type TargetNameFunc func(target.URI) string

// SimpleTargetName keys by scheme, host and port. Every path on a host
// shares one secret.
func SimpleTargetName(u target.URI) string {
	return u.Key(false)
}

// PathedTargetName keys by scheme, host, port and path.
func PathedTargetName(u target.URI) string {
	return u.Key(true)
}

// Store is a namespaced facade over a Vault. It performs no validation of
// freshness; what was written is what is read back.
type Store struct {
	vault      Vault
	namespace  string
	targetName TargetNameFunc
	pathed     bool
}

// NewStore returns a Store writing into vault under namespace. When pathed
// is set, targets are keyed with PathedTargetName, otherwise with
// SimpleTargetName.
func NewStore(vault Vault, namespace string, pathed bool) *Store {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	nameFn := SimpleTargetName
	if pathed {
		nameFn = PathedTargetName
	}
	return &Store{
		vault:      vault,
		namespace:  namespace,
		targetName: nameFn,
		pathed:     pathed,
	}
}

// Namespace returns the store's namespace.
func (s *Store) Namespace() string {
	return s.namespace
}

// WithNamespace returns a store over the same vault under another namespace.
func (s *Store) WithNamespace(namespace string) *Store {
	return NewStore(s.vault, namespace, s.pathed)
}

// Alternate returns a store over the same vault and namespace using the
// other target-name strategy. Erasure uses it to purge entries written
// before the strategy was switched.
func (s *Store) Alternate() *Store {
	return NewStore(s.vault, s.namespace, !s.pathed)
}

// CredentialKey returns the vault key of the credential for u.
func (s *Store) CredentialKey(u target.URI) string {
	return s.namespace + ":" + s.targetName(u)
}

// TokenKey returns the vault key of the token of type t for u.
func (s *Store) TokenKey(u target.URI, t token.Type) string {
	return s.CredentialKey(u) + "|" + t.String()
}

// ReadCredential returns the credential for u, or ErrNotFound.
func (s *Store) ReadCredential(u target.URI) (Credential, error) {
	var cred Credential
	if err := s.read(s.CredentialKey(u), &cred); err != nil {
		return Credential{}, err
	}
	return cred, nil
}

// WriteCredential stores cred for u, replacing any previous value.
func (s *Store) WriteCredential(u target.URI, cred Credential) error {
	return s.write(s.CredentialKey(u), "credential", cred)
}

// DeleteCredential removes the credential for u and reports whether one
// existed.
func (s *Store) DeleteCredential(u target.URI) (bool, error) {
	return s.delete(s.CredentialKey(u), "credential")
}

// ReadToken returns the token of type t for u, or ErrNotFound.
func (s *Store) ReadToken(u target.URI, t token.Type) (token.Token, error) {
	var tok token.Token
	if err := s.read(s.TokenKey(u, t), &tok); err != nil {
		return token.Token{}, err
	}
	if tok.Type != t {
		return token.Token{}, fmt.Errorf("entry %s holds a %s token", s.TokenKey(u, t), tok.Type)
	}
	return tok, nil
}

// WriteToken stores tok for u under its own type.
func (s *Store) WriteToken(u target.URI, tok token.Token) error {
	if tok.Type == token.TypeUnknown {
		return errors.New("refusing to store token of unknown type")
	}
	return s.write(s.TokenKey(u, tok.Type), tok.Type.String(), tok)
}

// DeleteToken removes the token of type t for u and reports whether one
// existed.
func (s *Store) DeleteToken(u target.URI, t token.Type) (bool, error) {
	return s.delete(s.TokenKey(u, t), t.String())
}

func (s *Store) read(key string, out interface{}) error {
	data, err := s.vault.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return &VaultError{Op: "read", Key: key, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		// A corrupt entry is treated as absent so it can be overwritten.
		logging.Warn("SecretStore", "discarding unreadable entry %s: %v", key, err)
		return ErrNotFound
	}
	return nil
}

func (s *Store) write(key, kind string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", kind, err)
	}

	if err := s.vault.Set(key, data); err != nil {
		logging.Audit(logging.AuditEvent{
			Action:    "secret_store_failed",
			Outcome:   "failure",
			Namespace: s.namespace,
			Target:    key,
			Kind:      kind,
			Error:     err,
		})
		return &VaultError{Op: "write", Key: key, Err: err}
	}

	logging.Audit(logging.AuditEvent{
		Action:    "secret_stored",
		Outcome:   "success",
		Namespace: s.namespace,
		Target:    key,
		Kind:      kind,
	})
	return nil
}

func (s *Store) delete(key, kind string) (bool, error) {
	existed, err := s.vault.Delete(key)
	if err != nil {
		logging.Audit(logging.AuditEvent{
			Action:    "secret_delete_failed",
			Outcome:   "failure",
			Namespace: s.namespace,
			Target:    key,
			Kind:      kind,
			Error:     err,
		})
		return false, &VaultError{Op: "delete", Key: key, Err: err}
	}

	if existed {
		logging.Audit(logging.AuditEvent{
			Action:    "secret_deleted",
			Outcome:   "success",
			Namespace: s.namespace,
			Target:    key,
			Kind:      kind,
		})
	}
	return existed, nil
}
