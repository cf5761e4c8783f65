package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"gopkg.in/ini.v1"
)

// UnknownVersion is reported when no version metadata could be read.
const UnknownVersion = "unknown"

var reVersion = regexp.MustCompile(`^[0-9][^\s_]*`)

// versionKeys lists, per metadata file, the section and key holding a version.
var versionKeys = []struct {
	file, section, key string
}{
	{"application.ini", "App", "Version"},
	{"platform.ini", "Build", "Milestone"},
}

// Installation is one Firefox data root and the profiles it registers.
type Installation struct {
	Version  string    `json:"version"`
	Root     string    `json:"root"`
	Profiles []Profile `json:"profiles"`
}

// Scanner looks for Firefox installations under a list of candidate roots.
type Scanner struct {
	Roots []string
}

// NewScanner returns a Scanner over the platform defaults plus extra roots.
func NewScanner(extra ...string) *Scanner {
	return &Scanner{Roots: append(DefaultRoots(runtime.GOOS, os.Getenv), extra...)}
}

// DefaultRoots lists the platform-specific Firefox data directories.
func DefaultRoots(goos string, getenv func(string) string) []string {
	home, _ := os.UserHomeDir()
	switch goos {
	case "windows":
		appData := getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return []string{filepath.Join(appData, "Mozilla", "Firefox")}
	case "darwin":
		return []string{filepath.Join(home, "Library", "Application Support", "Firefox")}
	default:
		return []string{
			filepath.Join(home, ".mozilla", "firefox"),
			filepath.Join(home, "snap", "firefox", "common", ".mozilla", "firefox"),
			filepath.Join(home, ".var", "app", "org.mozilla.firefox", ".mozilla", "firefox"),
		}
	}
}

// Scan inspects every root. Roots that are missing, unreadable or lack a
// profile registry are skipped without error.
func (s *Scanner) Scan() []Installation {
	var out []Installation
	for _, root := range s.Roots {
		inst, ok := scanRoot(root, len(out))
		if !ok {
			continue
		}
		out = append(out, inst)
	}
	return out
}

func scanRoot(root string, index int) (Installation, bool) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return Installation{}, false
	}
	f, err := os.Open(filepath.Join(root, RegistryFileName))
	if err != nil {
		return Installation{}, false
	}
	defer f.Close()

	profiles, err := ParseRegistry(root, fmt.Sprintf("installation-%d-", index), f)
	if err != nil {
		return Installation{}, false
	}
	return Installation{
		Version:  DetectVersion(root, profiles),
		Root:     root,
		Profiles: profiles,
	}, true
}

// DetectVersion reads the installation's application.ini or platform.ini,
// then each profile's compatibility.ini, falling back to UnknownVersion.
func DetectVersion(root string, profiles []Profile) string {
	for _, vk := range versionKeys {
		if v := readVersion(filepath.Join(root, vk.file), vk.section, vk.key); v != "" {
			return v
		}
	}
	for _, p := range profiles {
		if v := readVersion(filepath.Join(p.Path, "compatibility.ini"), "Compatibility", "LastVersion"); v != "" {
			return v
		}
	}
	return UnknownVersion
}

// readVersion returns the leading version number of section.key in the ini
// file at path, or "" when absent.
func readVersion(path, section, key string) string {
	cfg, err := ini.LoadSources(ini.LoadOptions{Loose: true, SkipUnrecognizableLines: true}, path)
	if err != nil {
		return ""
	}
	return reVersion.FindString(cfg.Section(section).Key(key).String())
}
