package secret

import (
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

// freedesktop Secret Service names.
const (
	secretServiceName       = "org.freedesktop.secrets"
	secretServicePath       = dbus.ObjectPath("/org/freedesktop/secrets")
	secretDefaultCollection = dbus.ObjectPath("/org/freedesktop/secrets/aliases/default")

	serviceInterface    = "org.freedesktop.Secret.Service"
	collectionInterface = "org.freedesktop.Secret.Collection"
	itemInterface       = "org.freedesktop.Secret.Item"
	promptInterface     = "org.freedesktop.Secret.Prompt"

	algorithmPlain = "plain"
	noPrompt       = dbus.ObjectPath("/")
)

// secretAttribute tags every item this vault owns.
const secretAttribute = "credmgr"

// promptTimeout bounds how long an unlock prompt may stay open.
const promptTimeout = 2 * time.Minute

// dbusSecret is the (oayays) Secret struct of the Secret Service API.
type dbusSecret struct {
	Session     dbus.ObjectPath
	Parameters  []byte
	Value       []byte
	ContentType string
}

// SecretServiceVault stores entries in the default collection of the
// freedesktop Secret Service (GNOME Keyring, KWallet, KeePassXC, ...).
type SecretServiceVault struct {
	conn    *dbus.Conn
	session dbus.ObjectPath
}

// NewSecretServiceVault connects to the session bus and opens a plain
// session with the Secret Service.
func NewSecretServiceVault() (*SecretServiceVault, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var output dbus.Variant
	var session dbus.ObjectPath
	err = conn.Object(secretServiceName, secretServicePath).
		Call(serviceInterface+".OpenSession", 0, algorithmPlain, dbus.MakeVariant("")).
		Store(&output, &session)
	if err != nil {
		return nil, fmt.Errorf("failed to open secret service session: %w", err)
	}

	return &SecretServiceVault{conn: conn, session: session}, nil
}

func itemAttributes(key string) map[string]string {
	return map[string]string{
		"service": secretAttribute,
		"key":     key,
	}
}

// find returns the unlocked item path for key, or "" if there is none.
func (v *SecretServiceVault) find(key string) (dbus.ObjectPath, error) {
	var unlocked, locked []dbus.ObjectPath
	err := v.conn.Object(secretServiceName, secretServicePath).
		Call(serviceInterface+".SearchItems", 0, itemAttributes(key)).
		Store(&unlocked, &locked)
	if err != nil {
		return "", fmt.Errorf("failed to search secret service: %w", err)
	}

	if len(unlocked) > 0 {
		return unlocked[0], nil
	}
	if len(locked) == 0 {
		return "", nil
	}

	if err := v.unlock(locked[:1]); err != nil {
		return "", err
	}
	return locked[0], nil
}

func (v *SecretServiceVault) unlock(paths []dbus.ObjectPath) error {
	var unlocked []dbus.ObjectPath
	var prompt dbus.ObjectPath
	err := v.conn.Object(secretServiceName, secretServicePath).
		Call(serviceInterface+".Unlock", 0, paths).
		Store(&unlocked, &prompt)
	if err != nil {
		return fmt.Errorf("failed to unlock secret: %w", err)
	}
	return v.handlePrompt(prompt)
}

// handlePrompt runs a Secret Service prompt, if one was returned, and waits
// for it to complete.
func (v *SecretServiceVault) handlePrompt(prompt dbus.ObjectPath) error {
	if prompt == "" || prompt == noPrompt {
		return nil
	}

	matchOpts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(prompt),
		dbus.WithMatchInterface(promptInterface),
		dbus.WithMatchMember("Completed"),
	}
	if err := v.conn.AddMatchSignal(matchOpts...); err != nil {
		return fmt.Errorf("failed to watch secret service prompt: %w", err)
	}
	defer func() { _ = v.conn.RemoveMatchSignal(matchOpts...) }()

	signals := make(chan *dbus.Signal, 4)
	v.conn.Signal(signals)
	defer v.conn.RemoveSignal(signals)

	if err := v.conn.Object(secretServiceName, prompt).Call(promptInterface+".Prompt", 0, "").Err; err != nil {
		return fmt.Errorf("failed to show secret service prompt: %w", err)
	}

	timeout := time.After(promptTimeout)
	for {
		select {
		case sig := <-signals:
			if sig == nil || sig.Path != prompt || sig.Name != promptInterface+".Completed" {
				continue
			}
			if len(sig.Body) > 0 {
				if dismissed, ok := sig.Body[0].(bool); ok && dismissed {
					return errors.New("secret service prompt dismissed")
				}
			}
			return nil
		case <-timeout:
			return errors.New("secret service prompt timed out")
		}
	}
}

// Get implements Vault.
func (v *SecretServiceVault) Get(key string) ([]byte, error) {
	item, err := v.find(key)
	if err != nil {
		return nil, err
	}
	if item == "" {
		return nil, ErrNotFound
	}

	var s dbusSecret
	err = v.conn.Object(secretServiceName, item).
		Call(itemInterface+".GetSecret", 0, v.session).
		Store(&s)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}
	return s.Value, nil
}

// Set implements Vault.
func (v *SecretServiceVault) Set(key string, value []byte) error {
	props := map[string]dbus.Variant{
		itemInterface + ".Label":      dbus.MakeVariant("credmgr: " + key),
		itemInterface + ".Attributes": dbus.MakeVariant(itemAttributes(key)),
	}
	s := dbusSecret{
		Session:     v.session,
		Parameters:  []byte{},
		Value:       value,
		ContentType: "application/json",
	}

	var item, prompt dbus.ObjectPath
	err := v.conn.Object(secretServiceName, secretDefaultCollection).
		Call(collectionInterface+".CreateItem", 0, props, s, true).
		Store(&item, &prompt)
	if err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}
	return v.handlePrompt(prompt)
}

// Delete implements Vault.
func (v *SecretServiceVault) Delete(key string) (bool, error) {
	item, err := v.find(key)
	if err != nil {
		return false, err
	}
	if item == "" {
		return false, nil
	}

	var prompt dbus.ObjectPath
	if err := v.conn.Object(secretServiceName, item).Call(itemInterface+".Delete", 0).Store(&prompt); err != nil {
		return false, fmt.Errorf("failed to delete secret: %w", err)
	}
	if err := v.handlePrompt(prompt); err != nil {
		return false, err
	}
	return true, nil
}
