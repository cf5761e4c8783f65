package prefs

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// FileName is the Firefox preference file inside a profile directory.
const FileName = "prefs.js"

var reUserPref = regexp.MustCompile(`^\s*user_pref\(\s*"((?:[^"\\]|\\.)+)"\s*,\s*(.+?)\s*\)\s*;\s*$`)

// CookiePolicy names a Firefox cookie behavior.
type CookiePolicy string

const (
	CookieDefault          CookiePolicy = "default"
	CookieAllowAll         CookiePolicy = "allow-all"
	CookieRejectForeign    CookiePolicy = "reject-foreign"
	CookieRejectAll        CookiePolicy = "reject-all"
	CookieLimitForeign     CookiePolicy = "limit-foreign"
	CookieRejectThirdParty CookiePolicy = "reject-third-party"
)

// CookiePolicyFromCode maps network.cookie.cookieBehavior codes.
func CookiePolicyFromCode(code int64) CookiePolicy {
	switch code {
	case 0:
		return CookieAllowAll
	case 1:
		return CookieRejectForeign
	case 2:
		return CookieRejectAll
	case 3:
		return CookieLimitForeign
	case 4:
		return CookieRejectThirdParty
	default:
		return CookieDefault
	}
}

// Privacy groups the privacy-related preferences.
type Privacy struct {
	TrackingProtection bool         `json:"trackingProtection"`
	CookiePolicy       CookiePolicy `json:"cookiePolicy"`
	HistoryEnabled     bool         `json:"historyEnabled"`
}

// Security groups the credential-related preferences.
type Security struct {
	PasswordManager bool `json:"passwordManager"`
	MasterPassword  bool `json:"masterPassword"`
}

// Settings is the subset of Firefox preferences carried into an import.
type Settings struct {
	Homepage          string   `json:"homepage"`
	SearchEngine      string   `json:"searchEngine"`
	DownloadDirectory string   `json:"downloadDirectory"`
	Privacy           Privacy  `json:"privacy"`
	Security          Security `json:"security"`
}

// Defaults returns the snapshot used when a key is absent.
func Defaults() Settings {
	return Settings{
		Homepage:     "about:home",
		SearchEngine: "Google",
		Privacy: Privacy{
			CookiePolicy:   CookieDefault,
			HistoryEnabled: true,
		},
		Security: Security{
			PasswordManager: true,
		},
	}
}

type applyFunc func(s *Settings, v value)

var recognized = map[string]applyFunc{
	"browser.startup.homepage": func(s *Settings, v value) {
		if str, ok := v.str(); ok {
			// Firefox stores multiple home pages separated by "|".
			s.Homepage, _, _ = strings.Cut(str, "|")
		}
	},
	"browser.search.defaultenginename": setString(func(s *Settings) *string { return &s.SearchEngine }),
	"browser.urlbar.placeholderName":   setString(func(s *Settings) *string { return &s.SearchEngine }),
	"browser.download.dir":             setString(func(s *Settings) *string { return &s.DownloadDirectory }),
	"privacy.trackingprotection.enabled": setBool(func(s *Settings) *bool {
		return &s.Privacy.TrackingProtection
	}),
	"network.cookie.cookieBehavior": func(s *Settings, v value) {
		if n, ok := v.int(); ok {
			s.Privacy.CookiePolicy = CookiePolicyFromCode(n)
		}
	},
	"places.history.enabled": setBool(func(s *Settings) *bool { return &s.Privacy.HistoryEnabled }),
	"signon.rememberSignons": setBool(func(s *Settings) *bool { return &s.Security.PasswordManager }),
	"security.ask_for_password": func(s *Settings, v value) {
		if n, ok := v.int(); ok {
			s.Security.MasterPassword = n != 0
		}
	},
}

func setString(field func(*Settings) *string) applyFunc {
	return func(s *Settings, v value) {
		if str, ok := v.str(); ok {
			*field(s) = str
		}
	}
}

func setBool(field func(*Settings) *bool) applyFunc {
	return func(s *Settings, v value) {
		if b, ok := v.bool(); ok {
			*field(s) = b
		}
	}
}

// value is the raw right-hand side of a user_pref statement.
type value string

func (v value) str() (string, bool) {
	raw := string(v)
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return "", false
	}
	var out string
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, true
	}
	return raw[1 : len(raw)-1], true
}

func (v value) bool() (bool, bool) {
	switch string(v) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func (v value) int() (int64, bool) {
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Parse reads user_pref statements from r. Lines that are not well-formed
// statements, and keys that are not recognized, are skipped. Lines have no
// length limit. A read error ends parsing with the fields seen so far.
func Parse(r io.Reader) Settings {
	settings := Defaults()

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if key, val, ok := parseLine(strings.TrimRight(line, "\r\n")); ok {
				if apply, found := recognized[key]; found {
					apply(&settings, val)
				}
			}
		}
		if err != nil {
			return settings
		}
	}
}

// ParseFile parses the preference file at path. A missing or unreadable file
// yields Defaults.
func ParseFile(path string) Settings {
	f, err := os.Open(path)
	if err != nil {
		return Defaults()
	}
	defer f.Close()
	return Parse(f)
}

func parseLine(line string) (string, value, bool) {
	m := reUserPref.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], value(m[2]), true
}
