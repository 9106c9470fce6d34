package provider

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const (
	keychainService = "wconnect"
	tokenKey        = "bridge_token"
)

// openRing opens the OS keychain, falling back to file-based storage on
// headless machines.
func openRing() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
	})
	if err != nil {
		ring, err = keyring.Open(keyring.Config{
			ServiceName:     keychainService,
			AllowedBackends: []keyring.BackendType{keyring.FileBackend},
		})
	}
	return ring, err
}

// BridgeToken returns the stored bridge auth token, or "" when none is set.
func BridgeToken() (string, error) {
	ring, err := openRing()
	if err != nil {
		return "", fmt.Errorf("opening keychain: %w", err)
	}
	item, err := ring.Get(tokenKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading bridge token: %w", err)
	}
	return string(item.Data), nil
}

// StoreBridgeToken saves the bridge auth token in the OS keychain.
func StoreBridgeToken(token string) error {
	ring, err := openRing()
	if err != nil {
		return fmt.Errorf("opening keychain: %w", err)
	}
	if err := ring.Set(keyring.Item{Key: tokenKey, Data: []byte(token)}); err != nil {
		return fmt.Errorf("storing bridge token: %w", err)
	}
	return nil
}
