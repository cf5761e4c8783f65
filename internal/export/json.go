package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sloppy/foxport/internal/bookmarks"
	"github.com/sloppy/foxport/internal/history"
	"github.com/sloppy/foxport/internal/repository"
	"github.com/sloppy/foxport/internal/vault"
)

// Source is the read side of an imported profile.
type Source interface {
	ReadMetadata() (repository.ImportMetadata, error)
	ReadBookmarks() ([]bookmarks.TreeNode, error)
	ReadBookmarkIndex() ([]bookmarks.IndexEntry, error)
	ReadPasswordIndex() ([]vault.IndexEntry, error)
	History() *history.Store
}

// ImportExport captures a whole import in one document. Passwords are
// exported from the index and never carry ciphertext.
type ImportExport struct {
	Metadata  repository.ImportMetadata `json:"metadata"`
	Bookmarks []bookmarks.TreeNode      `json:"bookmarks"`
	History   []history.Entry           `json:"history"`
	Passwords []vault.IndexEntry        `json:"passwords"`
}

// ExportImportJSON writes the full import as JSON to the writer.
func ExportImportJSON(src Source, w io.Writer) error {
	md, err := src.ReadMetadata()
	if err != nil {
		return fmt.Errorf("get metadata: %w", err)
	}
	tree, err := src.ReadBookmarks()
	if err != nil {
		return fmt.Errorf("list bookmarks: %w", err)
	}
	entries, err := src.History().Read(0)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	creds, err := src.ReadPasswordIndex()
	if err != nil {
		return fmt.Errorf("list passwords: %w", err)
	}

	payload := ImportExport{
		Metadata:  md,
		Bookmarks: tree,
		History:   entries,
		Passwords: creds,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// Writer selects the exporter for format and, for csv, the data set
// ("bookmarks" or "history").
func Writer(format, data string) (func(Source, io.Writer) error, error) {
	switch strings.ToLower(format) {
	case "json":
		return ExportImportJSON, nil
	case "text":
		return ExportImportText, nil
	case "csv":
		switch strings.ToLower(data) {
		case "", "bookmarks":
			return ExportBookmarksCSV, nil
		case "history":
			return ExportHistoryCSV, nil
		default:
			return nil, fmt.Errorf("unknown csv data set: %s", data)
		}
	default:
		return nil, fmt.Errorf("unknown export format: %s", format)
	}
}
