package config

import (
	"path/filepath"

	"github.com/sloppy/foxport/internal/vault"
)

// VaultKey derives the credential key. The secret is read from the
// environment variable named by Vault.SecretEnv. When that is unset it comes
// from store (the OS keychain) if Vault.Keychain is on, or from vault.key
// under the destination root.
func (c Config) VaultKey(getenv func(string) string, store vault.SecretStore) (vault.Key, error) {
	secret := []byte(getenv(c.Vault.SecretEnv))
	if len(secret) == 0 {
		src := vault.SecretSource{
			User:    c.DestinationRoot,
			KeyFile: filepath.Join(c.DestinationRoot, vault.KeyFileName),
		}
		if c.Vault.Keychain {
			src.Store = store
		}
		var err error
		secret, err = src.Load()
		if err != nil {
			return nil, err
		}
	}
	return vault.DeriveKey(secret, []byte(c.Vault.Salt))
}
