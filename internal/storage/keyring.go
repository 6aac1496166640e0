package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name entries are filed under
const KeyringService = "smartsim-cli"

// Keyring persists values in the OS keychain/credential manager
type Keyring struct {
	service string
}

// NewKeyring creates a keyring-backed store for service
func NewKeyring(service string) *Keyring {
	return &Keyring{service: service}
}

func (k *Keyring) Get(_ context.Context, key string) (string, error) {
	v, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read %s from keyring: %w", key, err)
	}
	return v, nil
}

func (k *Keyring) Set(_ context.Context, key, value string) error {
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("failed to save %s to keyring: %w", key, err)
	}
	return nil
}

func (k *Keyring) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := keyring.Delete(k.service, key); err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				continue // Already deleted
			}
			return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
		}
	}
	return nil
}

func (k *Keyring) Close() error { return nil }
