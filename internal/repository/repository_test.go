package repository

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sloppy/foxport/internal/bookmarks"
	"github.com/sloppy/foxport/internal/config"
	"github.com/sloppy/foxport/internal/discovery"
	"github.com/sloppy/foxport/internal/history"
	"github.com/sloppy/foxport/internal/importer"
	"github.com/sloppy/foxport/internal/lockfile"
	"github.com/sloppy/foxport/internal/places"
	"github.com/sloppy/foxport/internal/prefs"
	"github.com/sloppy/foxport/internal/testutil"
	"github.com/sloppy/foxport/internal/vault"
)

var fixedNow = time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	paths, err := config.EnsureProfileDirs(testutil.TempDir(t), "work")
	if err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	repo := New(paths)
	repo.Now = func() time.Time { return fixedNow }
	return repo
}

func int64p(v int64) *int64 { return &v }

func TestWriteAndReadBookmarks(t *testing.T) {
	repo := newRepo(t)
	forest := bookmarks.Build([]places.BookmarkRow{
		{ID: 1, Kind: places.KindFolder, Title: "Menu"},
		{ID: 2, Kind: places.KindBookmark, ParentID: int64p(1), Title: "Go", URL: "https://go.dev/"},
	})
	if err := repo.WriteBookmarks(forest); err != nil {
		t.Fatalf("write bookmarks: %v", err)
	}

	tree, err := repo.ReadBookmarks()
	if err != nil {
		t.Fatalf("read bookmarks: %v", err)
	}
	if len(tree) != 1 || len(tree[0].Children) != 1 || tree[0].Children[0].URL != "https://go.dev/" {
		t.Fatalf("unexpected tree: %+v", tree)
	}

	index, err := repo.ReadBookmarkIndex()
	if err != nil {
		t.Fatalf("read bookmark index: %v", err)
	}
	if len(index) != 2 || index[1].Path != "Menu/Go" {
		t.Fatalf("unexpected index: %+v", index)
	}
}

func TestWritePasswordsIndexHasNoCiphertext(t *testing.T) {
	repo := newRepo(t)
	creds := []vault.Credential{{
		ID:                7,
		Hostname:          "https://example.com",
		Username:          "alice",
		EncryptedPassword: "00aa:bbcc",
		TimesUsed:         3,
	}}
	if err := repo.WritePasswords(creds); err != nil {
		t.Fatalf("write passwords: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(repo.Paths.Passwords, PasswordIndexFileName))
	if err != nil {
		t.Fatalf("read raw index: %v", err)
	}
	if strings.Contains(string(raw), "00aa:bbcc") || strings.Contains(string(raw), "encryptedPassword") {
		t.Fatalf("index leaks ciphertext: %s", raw)
	}
	full, err := os.ReadFile(filepath.Join(repo.Paths.Passwords, PasswordsFileName))
	if err != nil {
		t.Fatalf("read passwords: %v", err)
	}
	if !strings.Contains(string(full), "00aa:bbcc") {
		t.Fatalf("sealed password missing from passwords.json")
	}

	index, err := repo.ReadPasswordIndex()
	if err != nil {
		t.Fatalf("read password index: %v", err)
	}
	if len(index) != 1 || index[0].Username != "alice" || index[0].TimesUsed != 3 {
		t.Fatalf("unexpected index: %+v", index)
	}
}

func TestWriteEmptyPasswords(t *testing.T) {
	repo := newRepo(t)
	if err := repo.WritePasswords(nil); err != nil {
		t.Fatalf("write passwords: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(repo.Paths.Passwords, PasswordsFileName))
	if err != nil {
		t.Fatalf("read passwords: %v", err)
	}
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Fatalf("expected empty array, got %s", raw)
	}
}

func TestWriteHistoryAndRead(t *testing.T) {
	repo := newRepo(t)
	repo.ChunkSize = 2
	entries := []history.Entry{
		{ID: 3, URL: "https://c.example/", LastVisitTime: fixedNow},
		{ID: 2, URL: "https://b.example/", LastVisitTime: fixedNow.Add(-time.Hour)},
		{ID: 1, URL: "https://a.example/", LastVisitTime: fixedNow.Add(-2 * time.Hour)},
	}
	if err := repo.WriteHistory(entries); err != nil {
		t.Fatalf("write history: %v", err)
	}

	index, err := repo.History().Index()
	if err != nil {
		t.Fatalf("history index: %v", err)
	}
	if index.ChunkCount != 2 || index.TotalEntries != 3 || !index.LastUpdated.Equal(fixedNow) {
		t.Fatalf("unexpected index: %+v", index)
	}
	got, err := repo.History().Read(2)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 2 {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestWriteMetadata(t *testing.T) {
	repo := newRepo(t)
	summary := importer.Summary{
		Profile:  discovery.Profile{ID: "installation-0-0", Name: "default-release", Path: "/home/me/.mozilla/firefox/x"},
		Stats:    importer.Stats{BookmarksCount: 4, HistoryCount: 10, PasswordsCount: 1},
		Settings: prefs.Defaults(),
	}
	if err := repo.WriteMetadata(summary); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	md, err := repo.ReadMetadata()
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if md.Source != SourceFirefox || md.SourceProfile.Name != "default-release" || md.Stats != summary.Stats {
		t.Fatalf("unexpected metadata: %+v", md)
	}
	if md.ImportID == "" || !md.ImportedAt.Equal(fixedNow) {
		t.Fatalf("missing id or timestamp: %+v", md)
	}
	if md.Settings.Homepage != "about:home" {
		t.Fatalf("settings not persisted: %+v", md.Settings)
	}

	if err := repo.WriteMetadata(summary); err != nil {
		t.Fatalf("rewrite metadata: %v", err)
	}
	again, err := repo.ReadMetadata()
	if err != nil {
		t.Fatalf("reread metadata: %v", err)
	}
	if again.ImportID == md.ImportID {
		t.Fatalf("import id should be fresh per import")
	}
}

func TestReadMissingFiles(t *testing.T) {
	repo := newRepo(t)
	if _, err := repo.ReadBookmarks(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if _, err := repo.ReadMetadata(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	got, err := repo.History().Read(10)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty history, got %v, %v", got, err)
	}
}

func TestLockIsExclusive(t *testing.T) {
	repo := newRepo(t)
	lock, err := repo.Lock()
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := New(repo.Paths).Lock(); !errors.Is(err, lockfile.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := repo.Lock()
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	again.Release()
}

func TestListImported(t *testing.T) {
	root := testutil.TempDir(t)
	if names, err := ListImported(root); err != nil || len(names) != 0 {
		t.Fatalf("expected no imports, got %v, %v", names, err)
	}

	for _, name := range []string{"zeta", "alpha", "pending"} {
		paths, err := config.EnsureProfileDirs(root, name)
		if err != nil {
			t.Fatalf("ensure dirs: %v", err)
		}
		if name == "pending" {
			continue
		}
		if err := New(paths).WriteMetadata(importer.Summary{}); err != nil {
			t.Fatalf("write metadata: %v", err)
		}
	}
	names, err := ListImported(root)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.Join(names, ",") != "alpha,zeta" {
		t.Fatalf("unexpected names: %v", names)
	}
}
