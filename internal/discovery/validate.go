package discovery

import (
	"os"
	"path/filepath"
	"time"
)

// Files probed in a profile directory.
const (
	PlacesFile = "places.sqlite"
	LoginsFile = "logins.json"
	KeyDBFile  = "key4.db"
	PrefsFile  = "prefs.js"
)

// Validation reports which importable data groups a profile carries.
type Validation struct {
	HasPlaces      bool     `json:"hasPlaces"`
	HasPasswords   bool     `json:"hasPasswords"`
	HasPreferences bool     `json:"hasPreferences"`
	IsValid        bool     `json:"isValid"`
	Errors         []string `json:"errors"`
}

// Metadata summarizes a profile directory.
type Metadata struct {
	LastModified time.Time `json:"lastModified"`
	Size         int64     `json:"size"`
	HasBookmarks bool      `json:"hasBookmarks"`
	HasHistory   bool      `json:"hasHistory"`
	HasPasswords bool      `json:"hasPasswords"`
}

// Validate checks for each data group by file existence only. A profile is
// valid when at least one group is present.
func Validate(dir string) Validation {
	v := Validation{
		HasPlaces:      fileExists(filepath.Join(dir, PlacesFile)),
		HasPasswords:   fileExists(filepath.Join(dir, LoginsFile)) && fileExists(filepath.Join(dir, KeyDBFile)),
		HasPreferences: fileExists(filepath.Join(dir, PrefsFile)),
		Errors:         []string{},
	}
	if !v.HasPlaces {
		v.Errors = append(v.Errors, "bookmarks and history database ("+PlacesFile+") not found")
	}
	if !v.HasPasswords {
		v.Errors = append(v.Errors, "saved logins ("+LoginsFile+" and "+KeyDBFile+") not found")
	}
	if !v.HasPreferences {
		v.Errors = append(v.Errors, "preferences ("+PrefsFile+") not found")
	}
	v.IsValid = v.HasPlaces || v.HasPasswords || v.HasPreferences
	return v
}

// ReadMetadata sums sizes and the newest modification time over the direct
// children of dir. A missing directory yields a zero Metadata.
func ReadMetadata(dir string) Metadata {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Metadata{}
	}

	var md Metadata
	var hasLogins, hasKeyDB bool
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			md.Size += info.Size()
		}
		if info.ModTime().After(md.LastModified) {
			md.LastModified = info.ModTime()
		}
		switch entry.Name() {
		case PlacesFile:
			md.HasBookmarks = true
			md.HasHistory = true
		case LoginsFile:
			hasLogins = true
		case KeyDBFile:
			hasKeyDB = true
		}
	}
	md.HasPasswords = hasLogins && hasKeyDB
	return md
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
