package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	KeySize = 32 // AES-256
	// KeyFileName holds a generated secret when none is configured.
	KeyFileName = "vault.key"
	// Separator joins the hex nonce and the hex ciphertext.
	Separator = ":"

	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1
)

// Key is a derived AES-256 key.
type Key []byte

// DeriveKey stretches secret with scrypt.
func DeriveKey(secret, salt []byte) (Key, error) {
	if len(secret) == 0 {
		return nil, errors.New("vault: empty secret")
	}
	key, err := scrypt.Key(secret, salt, scryptN, scryptR, scryptP, KeySize)
	if err != nil {
		return nil, fmt.Errorf("vault: derive key: %w", err)
	}
	return key, nil
}

// LoadOrCreateSecret reads the secret stored at path, creating a random one
// with mode 0600 when the file does not exist yet.
func LoadOrCreateSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != KeySize {
			return nil, fmt.Errorf("vault: secret at %s has invalid size %d (expected %d)", path, len(data), KeySize)
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("vault: read secret: %w", err)
	}

	secret := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("vault: generate secret: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("vault: create secret dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			// Another process created it between the read and the open.
			return LoadOrCreateSecret(path)
		}
		return nil, fmt.Errorf("vault: create secret: %w", err)
	}
	if _, err := f.Write(secret); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("vault: write secret: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("vault: close secret: %w", err)
	}
	return secret, nil
}

// Encrypt seals plaintext with AES-256-GCM under a fresh random nonce and
// returns hex(nonce) + ":" + hex(ciphertext).
func Encrypt(key Key, plaintext string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + Separator + hex.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func Decrypt(key Key, stored string) (string, error) {
	nonceHex, sealedHex, ok := strings.Cut(stored, Separator)
	if !ok || nonceHex == "" || sealedHex == "" {
		return "", errors.New("vault: malformed encrypted value")
	}
	nonce, err := hex.DecodeString(nonceHex)
	if err != nil {
		return "", fmt.Errorf("vault: decode nonce: %w", err)
	}
	sealed, err := hex.DecodeString(sealedHex)
	if err != nil {
		return "", fmt.Errorf("vault: decode ciphertext: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("vault: nonce has size %d (expected %d)", len(nonce), gcm.NonceSize())
	}
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("vault: decrypt value: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: new gcm: %w", err)
	}
	return gcm, nil
}
