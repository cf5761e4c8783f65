package testutil

import (
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

const placesSchema = `
CREATE TABLE moz_places (
	id INTEGER PRIMARY KEY,
	url LONGVARCHAR,
	title LONGVARCHAR,
	rev_host LONGVARCHAR,
	visit_count INTEGER DEFAULT 0,
	hidden INTEGER DEFAULT 0 NOT NULL,
	typed INTEGER DEFAULT 0 NOT NULL,
	frecency INTEGER DEFAULT -1 NOT NULL,
	last_visit_date INTEGER,
	guid TEXT
);
CREATE TABLE moz_bookmarks (
	id INTEGER PRIMARY KEY,
	type INTEGER,
	fk INTEGER DEFAULT NULL,
	parent INTEGER,
	position INTEGER,
	title LONGVARCHAR,
	keyword_id INTEGER,
	folder_type TEXT,
	dateAdded INTEGER,
	lastModified INTEGER,
	guid TEXT
);
`

// Place is a moz_places fixture row. LastVisit is in microseconds.
type Place struct {
	ID         int64
	URL        string
	Title      string
	VisitCount int64
	LastVisit  int64
	Typed      bool
}

// Bookmark is a moz_bookmarks fixture row. Parent 0 stores NULL.
type Bookmark struct {
	ID           int64
	Type         int64
	FK           int64
	Parent       int64
	Position     int64
	Title        string
	DateAdded    int64
	LastModified int64
}

// FirefoxProfile describes the files to lay down in a fake profile directory.
type FirefoxProfile struct {
	Places    []Place
	Bookmarks []Bookmark
	// WithPlaces creates places.sqlite even when no rows are given.
	WithPlaces bool
	Logins     string // logins.json content; empty skips the file
	KeyDB      bool
	Prefs      string // prefs.js content; empty skips the file
}

// NewFirefoxProfile writes p into a fresh temp directory and returns its path.
func NewFirefoxProfile(t *testing.T, p FirefoxProfile) string {
	t.Helper()
	dir := TempDir(t)

	if p.WithPlaces || len(p.Places) > 0 || len(p.Bookmarks) > 0 {
		WritePlaces(t, filepath.Join(dir, "places.sqlite"), p.Places, p.Bookmarks)
	}
	if p.Logins != "" {
		WriteFile(t, filepath.Join(dir, "logins.json"), p.Logins)
	}
	if p.KeyDB {
		WriteFile(t, filepath.Join(dir, "key4.db"), "SQLite format 3")
	}
	if p.Prefs != "" {
		WriteFile(t, filepath.Join(dir, "prefs.js"), p.Prefs)
	}
	return dir
}

// WritePlaces creates a places.sqlite at path with the given rows.
func WritePlaces(t *testing.T, path string, places []Place, bookmarks []Bookmark) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	uri := (&url.URL{Path: "/" + strings.TrimPrefix(filepath.ToSlash(path), "/")}).EscapedPath()
	db, err := sql.Open("sqlite", "file:"+uri)
	if err != nil {
		t.Fatalf("open places fixture: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(placesSchema); err != nil {
		t.Fatalf("create places schema: %v", err)
	}
	for _, p := range places {
		var lastVisit any
		if p.LastVisit != 0 {
			lastVisit = p.LastVisit
		}
		typed := 0
		if p.Typed {
			typed = 1
		}
		if _, err := db.Exec(
			`INSERT INTO moz_places (id, url, title, visit_count, typed, last_visit_date) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.URL, p.Title, p.VisitCount, typed, lastVisit,
		); err != nil {
			t.Fatalf("insert place %d: %v", p.ID, err)
		}
	}
	for _, b := range bookmarks {
		var parent, fk any
		if b.Parent != 0 {
			parent = b.Parent
		}
		if b.FK != 0 {
			fk = b.FK
		}
		if _, err := db.Exec(
			`INSERT INTO moz_bookmarks (id, type, fk, parent, position, title, dateAdded, lastModified) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.Type, fk, parent, b.Position, b.Title, b.DateAdded, b.LastModified,
		); err != nil {
			t.Fatalf("insert bookmark %d: %v", b.ID, err)
		}
	}
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
