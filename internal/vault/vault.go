package vault

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"
)

const (
	LoginsFileName = "logins.json"
	// KeyDBFileName is the NSS key database that must accompany logins.json.
	KeyDBFileName = "key4.db"
)

// Credential is an imported login with its password sealed by the vault.
type Credential struct {
	ID                int64     `json:"id"`
	Hostname          string    `json:"hostname"`
	Username          string    `json:"username"`
	EncryptedPassword string    `json:"encryptedPassword"`
	TimeCreated       time.Time `json:"timeCreated"`
	TimeLastUsed      time.Time `json:"timeLastUsed"`
	TimesUsed         int64     `json:"timesUsed"`
}

// IndexEntry is the non-sensitive view of a Credential.
type IndexEntry struct {
	ID           int64     `json:"id"`
	Hostname     string    `json:"hostname"`
	Username     string    `json:"username"`
	TimeCreated  time.Time `json:"timeCreated"`
	TimeLastUsed time.Time `json:"timeLastUsed"`
	TimesUsed    int64     `json:"timesUsed"`
}

// loginsFile mirrors logins.json. Timestamps are milliseconds since epoch.
type loginsFile struct {
	Logins []loginRecord `json:"logins"`
}

type loginRecord struct {
	ID                int64  `json:"id"`
	Hostname          string `json:"hostname"`
	EncryptedUsername string `json:"encryptedUsername"`
	EncryptedPassword string `json:"encryptedPassword"`
	TimeCreated       int64  `json:"timeCreated"`
	TimeLastUsed      int64  `json:"timeLastUsed"`
	TimesUsed         int64  `json:"timesUsed"`
}

// Vault extracts logins from a profile and seals them for storage.
type Vault struct {
	key    Key
	Logger *log.Logger
}

// New returns a Vault sealing with key.
func New(key Key) *Vault {
	return &Vault{key: key}
}

func (v *Vault) logger() *log.Logger {
	if v.Logger != nil {
		return v.Logger
	}
	return log.Default()
}

// Extract reads logins.json from profileDir and encrypts every password.
// Missing source files or malformed JSON yield an empty list, never an error.
func (v *Vault) Extract(profileDir string) []Credential {
	loginsPath := filepath.Join(profileDir, LoginsFileName)
	if !exists(loginsPath) || !exists(filepath.Join(profileDir, KeyDBFileName)) {
		return []Credential{}
	}

	data, err := os.ReadFile(loginsPath)
	if err != nil {
		v.logger().Printf("[Vault] WARNING: read %s: %v", loginsPath, err)
		return []Credential{}
	}
	var file loginsFile
	if err := json.Unmarshal(data, &file); err != nil {
		v.logger().Printf("[Vault] WARNING: parse %s: %v", loginsPath, err)
		return []Credential{}
	}

	creds := make([]Credential, 0, len(file.Logins))
	for _, login := range file.Logins {
		sealed, err := Encrypt(v.key, login.EncryptedPassword)
		if err != nil {
			v.logger().Printf("[Vault] WARNING: skip login %d for %s: %v", login.ID, login.Hostname, err)
			continue
		}
		creds = append(creds, Credential{
			ID:                login.ID,
			Hostname:          login.Hostname,
			Username:          login.EncryptedUsername,
			EncryptedPassword: sealed,
			TimeCreated:       fromMillis(login.TimeCreated),
			TimeLastUsed:      fromMillis(login.TimeLastUsed),
			TimesUsed:         login.TimesUsed,
		})
	}
	return creds
}

// IndexOf derives the non-sensitive index for creds.
func IndexOf(creds []Credential) []IndexEntry {
	out := make([]IndexEntry, 0, len(creds))
	for _, c := range creds {
		out = append(out, IndexEntry{
			ID:           c.ID,
			Hostname:     c.Hostname,
			Username:     c.Username,
			TimeCreated:  c.TimeCreated,
			TimeLastUsed: c.TimeLastUsed,
			TimesUsed:    c.TimesUsed,
		})
	}
	return out
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
