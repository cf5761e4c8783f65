package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sloppy/foxport/internal/config"
	"github.com/sloppy/foxport/internal/discovery"
	"github.com/sloppy/foxport/internal/lockfile"
	"github.com/sloppy/foxport/internal/repository"
	"github.com/sloppy/foxport/internal/testutil"
)

type cliEnv struct {
	configPath string
	destRoot   string
	profileDir string
}

// newCLIEnv lays out one Firefox installation with a single profile and a
// config file pointing at it.
func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	prev := newScanner
	newScanner = func(extra ...string) *discovery.Scanner {
		return &discovery.Scanner{Roots: extra}
	}
	t.Cleanup(func() { newScanner = prev })
	t.Setenv(config.DefaultSecretEnv, "cli test secret")

	profileDir := testutil.NewFirefoxProfile(t, testutil.FirefoxProfile{
		Places: []testutil.Place{
			{ID: 1, URL: "https://go.dev/", Title: "Go", VisitCount: 2, LastVisit: 1700000000000000},
			{ID: 2, URL: "https://example.org/", Title: "Example", VisitCount: 1, LastVisit: 1700000900000000},
		},
		Bookmarks: []testutil.Bookmark{
			{ID: 1, Type: 2, Title: "Menu"},
			{ID: 2, Type: 1, FK: 1, Parent: 1, Title: "Go"},
		},
		Prefs: `user_pref("browser.startup.homepage", "https://go.dev/");` + "\n",
	})

	firefoxRoot := testutil.TempDir(t)
	testutil.WriteFile(t, filepath.Join(firefoxRoot, discovery.RegistryFileName),
		"[Profile0]\nName=main profile\nIsRelative=0\nPath="+profileDir+"\nDefault=1\n")

	tmp := testutil.TempDir(t)
	destRoot := filepath.Join(tmp, "dest")
	configPath := filepath.Join(tmp, "config.toml")
	testutil.WriteFile(t, configPath,
		"destination_root = \""+filepath.ToSlash(destRoot)+"\"\nsearch_roots = [\""+filepath.ToSlash(firefoxRoot)+"\"]\n")

	return cliEnv{configPath: configPath, destRoot: destRoot, profileDir: profileDir}
}

func TestScanCLI(t *testing.T) {
	env := newCLIEnv(t)

	var stdout bytes.Buffer
	exit := run([]string{"foxport", "scan", "--config", env.configPath}, &stdout, ioDiscard{})
	if exit != 0 {
		t.Fatalf("scan exit %d", exit)
	}
	out := stdout.String()
	for _, want := range []string{"installation-0-0", "main profile (default)", "bookmarks,history,settings"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in scan output, got %q", want, out)
		}
	}
}

func TestValidateCLI(t *testing.T) {
	env := newCLIEnv(t)

	var stdout bytes.Buffer
	if exit := run([]string{"foxport", "validate", env.profileDir}, &stdout, ioDiscard{}); exit != 0 {
		t.Fatalf("validate exit %d", exit)
	}
	if !strings.Contains(stdout.String(), "missing: saved logins") {
		t.Fatalf("expected missing logins report, got %q", stdout.String())
	}

	if exit := run([]string{"foxport", "validate", testutil.TempDir(t)}, ioDiscard{}, ioDiscard{}); exit != 1 {
		t.Fatalf("expected exit 1 for empty profile, got %d", exit)
	}
}

func TestImportAndHistoryCLI(t *testing.T) {
	env := newCLIEnv(t)

	var stdout, stderr bytes.Buffer
	exit := run([]string{"foxport", "import", "--config", env.configPath, "--profile", "installation-0-0"}, &stdout, &stderr)
	if exit != 0 {
		t.Fatalf("import exit %d: %s", exit, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"[bookmarks]   0%", "[passwords]  50%", "[settings]  75%", "[complete] 100%", "2 bookmarks, 2 history entries, 0 passwords"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in import output, got %q", want, out)
		}
	}

	paths := config.GetProfilePaths(env.destRoot, "main profile")
	md, err := repository.New(paths).ReadMetadata()
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if md.Settings.Homepage != "https://go.dev/" || md.SourceProfile.Path != env.profileDir {
		t.Fatalf("unexpected metadata: %+v", md)
	}
	if _, err := os.Stat(filepath.Join(env.destRoot, "vault.key")); !os.IsNotExist(err) {
		t.Fatalf("env secret should be used instead of a key file")
	}

	stdout.Reset()
	exit = run([]string{"foxport", "history", "--config", env.configPath, "--dest", "main-profile", "--limit", "1"}, &stdout, ioDiscard{})
	if exit != 0 {
		t.Fatalf("history exit %d", exit)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], "https://example.org/") {
		t.Fatalf("unexpected history output: %q", stdout.String())
	}
}

func TestExportCLI(t *testing.T) {
	env := newCLIEnv(t)
	if exit := run([]string{"foxport", "import", "--config", env.configPath, "--all"}, ioDiscard{}, ioDiscard{}); exit != 0 {
		t.Fatalf("import exit %d", exit)
	}

	outPath := filepath.Join(testutil.TempDir(t), "history.csv")
	exit := run([]string{"foxport", "export", "--config", env.configPath, "--dest", "main-profile", "--format", "csv", "--data", "history", "-o", outPath}, ioDiscard{}, ioDiscard{})
	if exit != 0 {
		t.Fatalf("export exit %d", exit)
	}
	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "2,https://example.org/") {
		t.Fatalf("unexpected export:\n%s", content)
	}

	if exit := run([]string{"foxport", "export", "--config", env.configPath, "--dest", "nobody", "-o", outPath}, ioDiscard{}, ioDiscard{}); exit != 1 {
		t.Fatalf("expected exit 1 for unknown destination, got %d", exit)
	}
	if exit := run([]string{"foxport", "export", "--config", env.configPath, "--dest", "main-profile"}, ioDiscard{}, ioDiscard{}); exit != 1 {
		t.Fatalf("expected exit 1 without output, got %d", exit)
	}
}

func TestImportCustomDestination(t *testing.T) {
	env := newCLIEnv(t)

	exit := run([]string{"foxport", "import", "--config", env.configPath, "--profile", "installation-0-0", "--dest", "laptop"}, ioDiscard{}, ioDiscard{})
	if exit != 0 {
		t.Fatalf("import exit %d", exit)
	}
	names, err := repository.ListImported(env.destRoot)
	if err != nil {
		t.Fatalf("list imported: %v", err)
	}
	if strings.Join(names, ",") != "laptop" {
		t.Fatalf("unexpected destinations: %v", names)
	}
}

func TestImportAllCLI(t *testing.T) {
	env := newCLIEnv(t)
	exit := run([]string{"foxport", "import", "--config", env.configPath, "--all"}, ioDiscard{}, ioDiscard{})
	if exit != 0 {
		t.Fatalf("import --all exit %d", exit)
	}
	if _, err := os.Stat(filepath.Join(config.GetProfilePaths(env.destRoot, "main-profile").History, "history-index.json")); err != nil {
		t.Fatalf("history index missing: %v", err)
	}
}

func TestImportRespectsLock(t *testing.T) {
	env := newCLIEnv(t)
	lock, err := lockfile.Acquire(config.GetProfilePaths(env.destRoot, "main-profile").Home)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lock.Release()

	var stderr bytes.Buffer
	exit := run([]string{"foxport", "import", "--config", env.configPath, "--profile", "installation-0-0"}, ioDiscard{}, &stderr)
	if exit != 1 {
		t.Fatalf("expected exit 1 while locked, got %d", exit)
	}
	if !strings.Contains(stderr.String(), "another import") {
		t.Fatalf("expected lock message, got %q", stderr.String())
	}
}

func TestImportArgumentErrors(t *testing.T) {
	env := newCLIEnv(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no selector", []string{"import", "--config", env.configPath}},
		{"both selectors", []string{"import", "--config", env.configPath, "--all", "--profile", "x"}},
		{"dest with all", []string{"import", "--config", env.configPath, "--all", "--dest", "x"}},
		{"stray argument", []string{"import", "--config", env.configPath, "--profile", "installation-0-0", "extra"}},
		{"unknown profile", []string{"import", "--config", env.configPath, "--profile", "installation-9-9"}},
		{"history without dest", []string{"history", "--config", env.configPath}},
		{"history bad limit", []string{"history", "--config", env.configPath, "--dest", "x", "--limit", "-1"}},
		{"unknown command", []string{"explode"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"foxport"}, tt.args...)
			if exit := run(args, ioDiscard{}, ioDiscard{}); exit != 1 {
				t.Fatalf("expected exit 1, got %d", exit)
			}
		})
	}
}

func TestDestinationNames(t *testing.T) {
	profiles := []discovery.Profile{
		{ID: "installation-0-0", Name: "default"},
		{ID: "installation-1-0", Name: "default"},
	}
	names := destinationNames(profiles, "")
	if names["installation-0-0"] != "default" || names["installation-1-0"] != "installation-1-0" {
		t.Fatalf("unexpected names: %v", names)
	}
	single := destinationNames(profiles[:1], "My Laptop")
	if single["installation-0-0"] != "My-Laptop" {
		t.Fatalf("unexpected single name: %v", single)
	}
}

type ioDiscard struct{}

func (ioDiscard) Write(p []byte) (int, error) { return len(p), nil }
