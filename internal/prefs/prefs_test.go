package prefs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseRecognizedKeys(t *testing.T) {
	input := `// Mozilla User Preferences
user_pref("browser.startup.homepage", "https://start.example.org|https://second.example.org");
user_pref("browser.search.defaultenginename", "DuckDuckGo");
user_pref("browser.download.dir", "/home/user/Downloads");
user_pref("privacy.trackingprotection.enabled", true);
user_pref("network.cookie.cookieBehavior", 4);
user_pref("places.history.enabled", false);
user_pref("signon.rememberSignons", false);
user_pref("security.ask_for_password", 1);
user_pref("app.update.lastUpdateTime.addon-background-update-timer", 1700000000);
`
	got := Parse(strings.NewReader(input))

	if got.Homepage != "https://start.example.org" {
		t.Fatalf("homepage: got %q", got.Homepage)
	}
	if got.SearchEngine != "DuckDuckGo" {
		t.Fatalf("search engine: got %q", got.SearchEngine)
	}
	if got.DownloadDirectory != "/home/user/Downloads" {
		t.Fatalf("download dir: got %q", got.DownloadDirectory)
	}
	if !got.Privacy.TrackingProtection {
		t.Fatalf("expected tracking protection enabled")
	}
	if got.Privacy.CookiePolicy != CookieRejectThirdParty {
		t.Fatalf("cookie policy: got %q", got.Privacy.CookiePolicy)
	}
	if got.Privacy.HistoryEnabled {
		t.Fatalf("expected history disabled")
	}
	if got.Security.PasswordManager {
		t.Fatalf("expected password manager disabled")
	}
	if !got.Security.MasterPassword {
		t.Fatalf("expected master password enabled")
	}
}

func TestCookiePolicyFromCode(t *testing.T) {
	tests := []struct {
		code int64
		want CookiePolicy
	}{
		{0, CookieAllowAll},
		{1, CookieRejectForeign},
		{2, CookieRejectAll},
		{3, CookieLimitForeign},
		{4, CookieRejectThirdParty},
		{5, CookieDefault},
		{-1, CookieDefault},
	}
	for _, tt := range tests {
		if got := CookiePolicyFromCode(tt.code); got != tt.want {
			t.Errorf("code %d: got %q want %q", tt.code, got, tt.want)
		}
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	input := `user_pref("browser.download.dir", "/tmp/dl");
user_pref("browser.startup.homepage", "https://broken.example.org"
user_pref(network.cookie.cookieBehavior, 2);
garbage line
user_pref("places.history.enabled", "not-a-bool");
user_pref("network.cookie.cookieBehavior", 2);
`
	got := Parse(strings.NewReader(input))

	want := Defaults()
	want.DownloadDirectory = "/tmp/dl"
	want.Privacy.CookiePolicy = CookieRejectAll
	if got != want {
		t.Fatalf("unexpected settings\nwant: %+v\ngot:  %+v", want, got)
	}
}

func TestParseUnescapesStrings(t *testing.T) {
	got := Parse(strings.NewReader(`user_pref("browser.download.dir", "C:\\Users\\me\\Downloads");`))
	if got.DownloadDirectory != `C:\Users\me\Downloads` {
		t.Fatalf("download dir: got %q", got.DownloadDirectory)
	}
}

func TestParseFileMissingReturnsDefaults(t *testing.T) {
	got := ParseFile(filepath.Join(t.TempDir(), "nope", FileName))
	if got != Defaults() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(`user_pref("browser.urlbar.placeholderName", "Bing");`+"\n"), 0o644); err != nil {
		t.Fatalf("write prefs: %v", err)
	}
	if got := ParseFile(path); got.SearchEngine != "Bing" {
		t.Fatalf("search engine: got %q", got.SearchEngine)
	}
}

func TestParseContinuesPastOversizedLines(t *testing.T) {
	huge := strings.Repeat("x", 5*1024*1024)
	input := `user_pref("browser.startup.homepage", "https://a.example/");
user_pref("browser.uiCustomization.state", "` + huge + `");
` + huge + `
user_pref("network.cookie.cookieBehavior", 4);
`
	got := Parse(strings.NewReader(input))
	if got.Homepage != "https://a.example/" {
		t.Fatalf("homepage: got %q", got.Homepage)
	}
	if got.Privacy.CookiePolicy != CookieRejectThirdParty {
		t.Fatalf("cookie policy after long lines: got %q", got.Privacy.CookiePolicy)
	}
}
