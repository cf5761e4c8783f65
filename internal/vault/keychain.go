package vault

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	// KeychainService is the service name foxport secrets are filed under.
	KeychainService = "foxport"

	keychainTimeout = 5 * time.Second
)

// SecretStore is an external home for the vault secret.
type SecretStore interface {
	Get(service, user string) (string, error)
	Set(service, user, password string) error
}

// Keychain keeps secrets in the OS keychain through go-keyring.
type Keychain struct{}

func (Keychain) Get(service, user string) (string, error) { return keyring.Get(service, user) }
func (Keychain) Set(service, user, password string) error { return keyring.Set(service, user, password) }

// SecretSource resolves the secret the vault key is derived from. An existing
// key file is always honoured; otherwise the keychain entry for User is used,
// created on first use. KeyFile is the fallback when no keychain is reachable.
type SecretSource struct {
	Store   SecretStore // nil skips the keychain
	User    string
	KeyFile string
	Timeout time.Duration
	Logger  *log.Logger
}

func (s SecretSource) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// Load returns the secret.
func (s SecretSource) Load() ([]byte, error) {
	if _, err := os.Stat(s.KeyFile); err == nil || s.Store == nil {
		return LoadOrCreateSecret(s.KeyFile)
	}

	stored, err := s.withTimeout("get", func() (string, error) {
		return s.Store.Get(KeychainService, s.User)
	})
	switch {
	case err == nil:
		secret, err := hex.DecodeString(stored)
		if err != nil || len(secret) != KeySize {
			return nil, fmt.Errorf("vault: keychain secret for %s is malformed", s.User)
		}
		return secret, nil
	case !errors.Is(err, keyring.ErrNotFound):
		s.logger().Printf("[Vault] WARNING: keychain unavailable (%v), using %s", err, s.KeyFile)
		return LoadOrCreateSecret(s.KeyFile)
	}

	secret := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("vault: generate secret: %w", err)
	}
	if _, err := s.withTimeout("set", func() (string, error) {
		return "", s.Store.Set(KeychainService, s.User, hex.EncodeToString(secret))
	}); err != nil {
		s.logger().Printf("[Vault] WARNING: could not store secret in keychain (%v), using %s", err, s.KeyFile)
		return LoadOrCreateSecret(s.KeyFile)
	}
	return secret, nil
}

// withTimeout bounds a keychain call. go-keyring takes no context, so a call
// that times out keeps running in its goroutine.
func (s SecretSource) withTimeout(op string, fn func() (string, error)) (string, error) {
	timeout := s.Timeout
	if timeout == 0 {
		timeout = keychainTimeout
	}
	type result struct {
		val string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		val, err := fn()
		ch <- result{val, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.val, r.err
	case <-timer.C:
		return "", fmt.Errorf("keychain %s timed out after %v", op, timeout)
	}
}
