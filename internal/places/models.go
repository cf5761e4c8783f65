package places

import (
	"database/sql"
	"time"
)

// moz_bookmarks.type values.
const (
	typeBookmark = 1
	typeFolder   = 2
)

// Kind distinguishes bookmarks from folders.
type Kind string

const (
	KindBookmark Kind = "bookmark"
	KindFolder   Kind = "folder"
)

// KindFromType maps a moz_bookmarks.type code.
func KindFromType(code int64) Kind {
	if code == typeFolder {
		return KindFolder
	}
	return KindBookmark
}

// BookmarkRow is one moz_bookmarks row joined with its place URL.
type BookmarkRow struct {
	ID           int64
	Kind         Kind
	ParentID     *int64
	Position     int64
	Title        string
	URL          string
	DateAdded    time.Time
	LastModified time.Time
}

// HistoryRow is one visited moz_places row.
type HistoryRow struct {
	ID            int64
	URL           string
	Title         string
	VisitCount    int64
	LastVisitTime time.Time
	Typed         bool
}

type rawBookmark struct {
	ID           int64
	Type         int64
	Parent       sql.NullInt64
	Position     sql.NullInt64
	Title        sql.NullString
	DateAdded    sql.NullInt64
	LastModified sql.NullInt64
	URL          sql.NullString
}

func (r rawBookmark) toRow() BookmarkRow {
	row := BookmarkRow{
		ID:           r.ID,
		Kind:         KindFromType(r.Type),
		Position:     r.Position.Int64,
		Title:        r.Title.String,
		DateAdded:    FromMicros(r.DateAdded),
		LastModified: FromMicros(r.LastModified),
		ParentID:     ParentFromNull(r.Parent),
	}
	if row.Kind == KindBookmark {
		row.URL = r.URL.String
	}
	return row
}

type rawPlace struct {
	ID            int64
	URL           sql.NullString
	Title         sql.NullString
	VisitCount    sql.NullInt64
	LastVisitDate sql.NullInt64
	Typed         sql.NullInt64
}

func (r rawPlace) toRow() HistoryRow {
	return HistoryRow{
		ID:            r.ID,
		URL:           r.URL.String,
		Title:         r.Title.String,
		VisitCount:    r.VisitCount.Int64,
		LastVisitTime: FromMicros(r.LastVisitDate),
		Typed:         r.Typed.Int64 != 0,
	}
}

// FromMicros converts a places timestamp (microseconds since epoch).
func FromMicros(value sql.NullInt64) time.Time {
	if !value.Valid || value.Int64 <= 0 {
		return time.Time{}
	}
	return time.UnixMicro(value.Int64).UTC()
}

// ParentFromNull maps the parent column; the places root uses parent 0.
func ParentFromNull(value sql.NullInt64) *int64 {
	if !value.Valid || value.Int64 == 0 {
		return nil
	}
	v := value.Int64
	return &v
}
