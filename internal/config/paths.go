package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var reUnsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ProfilePaths is the destination layout for one imported profile.
type ProfilePaths struct {
	Name      string // Destination profile name
	Home      string // Profile root; holds import-metadata.json
	Bookmarks string
	History   string
	Passwords string
}

// GetProfilePaths returns the layout for profile name under root.
func GetProfilePaths(root, name string) ProfilePaths {
	name = SanitizeName(name)
	home := filepath.Join(root, "profiles", name)
	return ProfilePaths{
		Name:      name,
		Home:      home,
		Bookmarks: filepath.Join(home, "bookmarks"),
		History:   filepath.Join(home, "history"),
		Passwords: filepath.Join(home, "passwords"),
	}
}

// EnsureProfileDirs creates the directory structure for the given profile.
func EnsureProfileDirs(root, name string) (ProfilePaths, error) {
	paths := GetProfilePaths(root, name)

	for _, dir := range []string{paths.Home, paths.Bookmarks, paths.History, paths.Passwords} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, err
		}
	}
	return paths, nil
}

// SanitizeName turns a Firefox profile name into a directory name.
func SanitizeName(name string) string {
	name = strings.Trim(reUnsafeName.ReplaceAllString(strings.TrimSpace(name), "-"), "-.")
	if name == "" {
		return "default"
	}
	return name
}

// GetFoxportHome returns the foxport home directory (~/.foxport).
func GetFoxportHome() string {
	userHome, _ := os.UserHomeDir()
	return filepath.Join(userHome, ".foxport")
}

// ExpandPath expands ~ to the user home directory.
func ExpandPath(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) == 1 {
			return home
		}
		if path[1] == '/' || path[1] == os.PathSeparator {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
