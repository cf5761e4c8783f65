package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sloppy/foxport/internal/bookmarks"
	"github.com/sloppy/foxport/internal/config"
	"github.com/sloppy/foxport/internal/discovery"
	"github.com/sloppy/foxport/internal/history"
	"github.com/sloppy/foxport/internal/importer"
	"github.com/sloppy/foxport/internal/places"
	"github.com/sloppy/foxport/internal/prefs"
	"github.com/sloppy/foxport/internal/repository"
	"github.com/sloppy/foxport/internal/testutil"
	"github.com/sloppy/foxport/internal/vault"
)

var added = time.Date(2024, 12, 24, 18, 30, 0, 0, time.UTC)

func setupExportRepo(t *testing.T) *repository.Repository {
	t.Helper()
	paths, err := config.EnsureProfileDirs(testutil.TempDir(t), "export")
	if err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	repo := repository.New(paths)

	parent := int64(1)
	forest := bookmarks.Build([]places.BookmarkRow{
		{ID: 1, Kind: places.KindFolder, Title: "Toolbar", DateAdded: added},
		{ID: 2, Kind: places.KindBookmark, ParentID: &parent, Title: "Go, the language", URL: "https://go.dev/", DateAdded: added},
	})
	if err := repo.WriteBookmarks(forest); err != nil {
		t.Fatalf("write bookmarks: %v", err)
	}
	if err := repo.WriteHistory([]history.Entry{
		{ID: 9, URL: "https://go.dev/doc/", Title: "Docs", VisitCount: 3, LastVisitTime: added, Typed: true},
		{ID: 4, URL: "https://example.com/", Title: "Example", VisitCount: 1, LastVisitTime: added.Add(-time.Hour)},
	}); err != nil {
		t.Fatalf("write history: %v", err)
	}
	if err := repo.WritePasswords([]vault.Credential{
		{ID: 1, Hostname: "https://example.com", Username: "alice", EncryptedPassword: "00:ff", TimesUsed: 2},
	}); err != nil {
		t.Fatalf("write passwords: %v", err)
	}
	if err := repo.WriteMetadata(importer.Summary{
		Profile:     discovery.Profile{ID: "installation-0-0", Name: "default", Path: "/profiles/default"},
		Stats:       importer.Stats{BookmarksCount: 2, HistoryCount: 2, PasswordsCount: 1},
		Settings:    prefs.Defaults(),
		CompletedAt: added,
	}); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	return repo
}

func TestExportBookmarksCSV(t *testing.T) {
	repo := setupExportRepo(t)

	var buf bytes.Buffer
	if err := ExportBookmarksCSV(repo, &buf); err != nil {
		t.Fatalf("export csv: %v", err)
	}

	expected := `id,type,title,url,path,depth,date_added
1,folder,Toolbar,,Toolbar,0,2024-12-24T18:30:00Z
2,bookmark,"Go, the language",https://go.dev/,"Toolbar/Go, the language",1,2024-12-24T18:30:00Z`
	if strings.TrimSpace(buf.String()) != expected {
		t.Fatalf("csv export mismatch\nexpected:\n%s\n\ngot:\n%s", expected, buf.String())
	}
}

func TestExportHistoryCSV(t *testing.T) {
	repo := setupExportRepo(t)

	var buf bytes.Buffer
	if err := ExportHistoryCSV(repo, &buf); err != nil {
		t.Fatalf("export csv: %v", err)
	}

	expected := `id,url,title,visit_count,last_visit_time,typed
9,https://go.dev/doc/,Docs,3,2024-12-24T18:30:00Z,true
4,https://example.com/,Example,1,2024-12-24T17:30:00Z,false`
	if strings.TrimSpace(buf.String()) != expected {
		t.Fatalf("csv export mismatch\nexpected:\n%s\n\ngot:\n%s", expected, buf.String())
	}
}

func TestExportImportJSON(t *testing.T) {
	repo := setupExportRepo(t)

	var buf bytes.Buffer
	if err := ExportImportJSON(repo, &buf); err != nil {
		t.Fatalf("export json: %v", err)
	}
	if strings.Contains(buf.String(), "00:ff") {
		t.Fatalf("json export leaks ciphertext")
	}

	var payload ImportExport
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Metadata.SourceProfile.Name != "default" || len(payload.Bookmarks) != 1 || len(payload.History) != 2 || len(payload.Passwords) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestExportImportText(t *testing.T) {
	repo := setupExportRepo(t)

	var buf bytes.Buffer
	if err := ExportImportText(repo, &buf); err != nil {
		t.Fatalf("export text: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`Source: firefox profile "default" (/profiles/default)`,
		"Imported: 2024-12-24 18:30:00",
		"Counts: 2 bookmarks, 2 history entries, 1 passwords",
		"    Go, the language",
		"https://example.com",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in text export:\n%s", want, out)
		}
	}
	if strings.Contains(out, "00:ff") {
		t.Fatalf("text export leaks ciphertext")
	}
}

func TestExportMissingImport(t *testing.T) {
	repo := repository.New(config.GetProfilePaths(testutil.TempDir(t), "none"))
	var buf bytes.Buffer
	if err := ExportImportJSON(repo, &buf); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestWriterSelection(t *testing.T) {
	repo := setupExportRepo(t)
	tests := []struct {
		format, data string
		wantPrefix   string
	}{
		{"json", "", "{"},
		{"TEXT", "", "Import: "},
		{"csv", "", "id,type,title"},
		{"csv", "history", "id,url,title"},
	}
	for _, tt := range tests {
		write, err := Writer(tt.format, tt.data)
		if err != nil {
			t.Fatalf("%s/%s: %v", tt.format, tt.data, err)
		}
		var buf bytes.Buffer
		if err := write(repo, &buf); err != nil {
			t.Fatalf("%s/%s: write: %v", tt.format, tt.data, err)
		}
		if !strings.HasPrefix(buf.String(), tt.wantPrefix) {
			t.Fatalf("%s/%s: unexpected output %q", tt.format, tt.data, buf.String())
		}
	}
	if _, err := Writer("xml", ""); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if _, err := Writer("csv", "passwords"); err == nil {
		t.Fatalf("expected unknown data set error")
	}
}
