package discovery

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"

	"gopkg.in/ini.v1"
)

// RegistryFileName is the Firefox profile registry inside an installation root.
const RegistryFileName = "profiles.ini"

var reProfileSection = regexp.MustCompile(`^Profile\d+$`)

// Profile describes one Firefox profile found in a registry. ID is assigned
// per scan and is not stable across scans.
type Profile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	IsDefault  bool   `json:"isDefault"`
	IsRelative bool   `json:"isRelative"`
}

// ParseRegistry reads profiles.ini content for the installation at root.
// Only [ProfileN] sections carrying both Name and Path are returned, in file
// order. idPrefix is prepended to the 0-based accepted-profile counter.
func ParseRegistry(root, idPrefix string, r io.Reader) ([]Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	// Paths may contain ';' or '#', and Windows paths end in '\'.
	cfg, err := ini.LoadSources(ini.LoadOptions{
		KeyValueDelimiters:      "=",
		IgnoreInlineComment:     true,
		IgnoreContinuation:      true,
		SkipUnrecognizableLines: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	var out []Profile
	for _, sec := range cfg.Sections() {
		if !reProfileSection.MatchString(sec.Name()) {
			continue
		}
		name := sec.Key("Name").String()
		path := sec.Key("Path").String()
		if name == "" || path == "" {
			continue
		}

		p := Profile{
			Name:       name,
			IsDefault:  sec.Key("Default").String() == "1",
			IsRelative: sec.Key("IsRelative").String() == "1",
		}
		if p.IsRelative {
			p.Path = filepath.Join(root, filepath.FromSlash(path))
		} else {
			p.Path = filepath.Clean(path)
		}
		if abs, err := filepath.Abs(p.Path); err == nil {
			p.Path = abs
		}
		p.ID = idPrefix + strconv.Itoa(len(out))
		out = append(out, p)
	}
	return out, nil
}
