package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	DefaultSecretEnv = "FOXPORT_VAULT_SECRET"
	DefaultSalt      = "foxport-credential-vault"
	FileName         = "config.toml"
)

// Config holds the user-tunable settings read from config.toml.
type Config struct {
	DestinationRoot string        `toml:"destination_root"`
	SearchRoots     []string      `toml:"search_roots"`
	History         HistoryConfig `toml:"history"`
	Vault           VaultConfig   `toml:"vault"`
}

// HistoryConfig bounds the imported history.
type HistoryConfig struct {
	MaxEntries int `toml:"max_entries"`
	ChunkSize  int `toml:"chunk_size"`
}

// VaultConfig selects where the credential secret comes from.
type VaultConfig struct {
	SecretEnv string `toml:"secret_env"`
	Salt      string `toml:"salt"`
	Keychain  bool   `toml:"keychain"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DestinationRoot: GetFoxportHome(),
		History: HistoryConfig{
			MaxEntries: 10000,
			ChunkSize:  1000,
		},
		Vault: VaultConfig{
			SecretEnv: DefaultSecretEnv,
			Salt:      DefaultSalt,
			Keychain:  true,
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path means
// the config.toml under the foxport home; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = filepath.Join(GetFoxportHome(), FileName)
	}

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.DestinationRoot = ExpandPath(cfg.DestinationRoot)
	for i, root := range cfg.SearchRoots {
		cfg.SearchRoots[i] = ExpandPath(root)
	}
	if cfg.History.MaxEntries <= 0 {
		cfg.History.MaxEntries = Default().History.MaxEntries
	}
	if cfg.History.ChunkSize <= 0 {
		cfg.History.ChunkSize = Default().History.ChunkSize
	}
	if cfg.Vault.SecretEnv == "" {
		cfg.Vault.SecretEnv = DefaultSecretEnv
	}
	if cfg.Vault.Salt == "" {
		cfg.Vault.Salt = DefaultSalt
	}
	return cfg, nil
}
