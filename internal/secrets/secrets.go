// Package secrets provides opaque secret storage keyed by (service, account).
package secrets

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned when no secret exists for a (service, account) pair.
var ErrNotFound = errors.New("secret not found")

// Store is an opaque secret store. Save overwrites any existing secret for
// the same (service, account) pair; Delete of a missing secret is a no-op.
type Store interface {
	Save(service, account, secret string) error
	Read(service, account string) (string, error)
	Delete(service, account string) error
}

// Keyring stores secrets in the platform keychain.
type Keyring struct{}

// NewKeyring creates a keychain-backed store.
func NewKeyring() *Keyring {
	return &Keyring{}
}

// Save writes a secret, replacing any existing one.
func (k *Keyring) Save(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}

// Read returns the secret for (service, account).
// Returns ErrNotFound if no secret is stored.
func (k *Keyring) Read(service, account string) (string, error) {
	secret, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return secret, nil
}

// Delete removes the secret for (service, account).
// Returns nil if no secret is stored.
func (k *Keyring) Delete(service, account string) error {
	err := keyring.Delete(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
