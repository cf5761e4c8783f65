package places

import (
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// FileName is the Firefox bookmarks and history database.
const FileName = "places.sqlite"

// DB wraps a read-only connection to a places.sqlite file.
type DB struct {
	*sql.DB
	Path string
}

// Open opens the places database at path in read-only mode. The file must
// already exist; sqlite would otherwise create an empty database.
func Open(path string) (*DB, error) {
	dsn := URI(path) + "?mode=ro"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := sqlDB.Exec(`PRAGMA query_only = ON;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable query_only: %w", err)
	}

	return &DB{DB: sqlDB, Path: path}, nil
}

// URI turns a filesystem path into an sqlite file: URI, escaping characters
// such as '#', '%' and '?' that sqlite would otherwise parse.
func URI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "file:" + (&url.URL{Path: p}).EscapedPath()
}

// Bookmarks returns bookmark and folder rows ordered by parent, then position.
func (db *DB) Bookmarks() ([]BookmarkRow, error) {
	rows, err := db.Query(
		`SELECT b.id, b.type, b.parent, b.position, b.title, b.dateAdded, b.lastModified, p.url
		 FROM moz_bookmarks b
		 LEFT JOIN moz_places p ON p.id = b.fk
		 WHERE b.type IN (?, ?)
		 ORDER BY b.parent, b.position`,
		typeBookmark, typeFolder,
	)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()

	var out []BookmarkRow
	for rows.Next() {
		var raw rawBookmark
		if err := rows.Scan(&raw.ID, &raw.Type, &raw.Parent, &raw.Position, &raw.Title, &raw.DateAdded, &raw.LastModified, &raw.URL); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		out = append(out, raw.toRow())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookmark rows: %w", err)
	}
	return out, nil
}

// History returns up to limit visited places, most recent first.
func (db *DB) History(limit int) ([]HistoryRow, error) {
	rows, err := db.Query(
		`SELECT id, url, title, visit_count, last_visit_date, typed
		 FROM moz_places
		 WHERE last_visit_date IS NOT NULL AND url IS NOT NULL
		 ORDER BY last_visit_date DESC, id ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var raw rawPlace
		if err := rows.Scan(&raw.ID, &raw.URL, &raw.Title, &raw.VisitCount, &raw.LastVisitDate, &raw.Typed); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, raw.toRow())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return out, nil
}
