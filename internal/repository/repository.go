package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sloppy/foxport/internal/bookmarks"
	"github.com/sloppy/foxport/internal/config"
	"github.com/sloppy/foxport/internal/history"
	"github.com/sloppy/foxport/internal/importer"
	"github.com/sloppy/foxport/internal/lockfile"
	"github.com/sloppy/foxport/internal/prefs"
	"github.com/sloppy/foxport/internal/vault"
)

// Destination file names.
const (
	BookmarksFileName     = "bookmarks.json"
	BookmarkIndexFileName = "bookmarks-index.json"
	PasswordsFileName     = "passwords.json"
	PasswordIndexFileName = "passwords-index.json"
	MetadataFileName      = "import-metadata.json"
	SourceFirefox         = "firefox"
)

// SourceProfile identifies the profile an import came from.
type SourceProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// ImportMetadata is the summary record written after a successful import.
type ImportMetadata struct {
	ImportID      string         `json:"importId"`
	ImportedAt    time.Time      `json:"importedAt"`
	Source        string         `json:"source"`
	SourceProfile SourceProfile  `json:"sourceProfile"`
	Stats         importer.Stats `json:"stats"`
	Settings      prefs.Settings `json:"settings"`
}

var _ importer.Sink = (*Repository)(nil)

// Repository reads and writes the imported data of one destination profile.
type Repository struct {
	Paths     config.ProfilePaths
	ChunkSize int
	Now       func() time.Time
}

// New returns a Repository over paths with the default history chunk size.
func New(paths config.ProfilePaths) *Repository {
	return &Repository{
		Paths:     paths,
		ChunkSize: history.DefaultChunkSize,
		Now:       time.Now,
	}
}

// Lock takes the destination lock for this profile.
func (r *Repository) Lock() (*lockfile.Lock, error) {
	return lockfile.Acquire(r.Paths.Home)
}

// WriteBookmarks stores the nested tree and the flat path index.
func (r *Repository) WriteBookmarks(forest bookmarks.Forest) error {
	if err := writeJSON(filepath.Join(r.Paths.Bookmarks, BookmarksFileName), forest.Tree()); err != nil {
		return fmt.Errorf("write bookmark tree: %w", err)
	}
	if err := writeJSON(filepath.Join(r.Paths.Bookmarks, BookmarkIndexFileName), forest.Flatten()); err != nil {
		return fmt.Errorf("write bookmark index: %w", err)
	}
	return nil
}

// WriteHistory chunks entries into the history directory.
func (r *Repository) WriteHistory(entries []history.Entry) error {
	_, err := history.Write(r.Paths.History, entries, r.ChunkSize, r.now())
	return err
}

// WritePasswords stores the sealed credentials and their ciphertext-free index.
func (r *Repository) WritePasswords(creds []vault.Credential) error {
	if creds == nil {
		creds = []vault.Credential{}
	}
	if err := writeJSON(filepath.Join(r.Paths.Passwords, PasswordsFileName), creds); err != nil {
		return fmt.Errorf("write passwords: %w", err)
	}
	if err := writeJSON(filepath.Join(r.Paths.Passwords, PasswordIndexFileName), vault.IndexOf(creds)); err != nil {
		return fmt.Errorf("write password index: %w", err)
	}
	return nil
}

// WriteMetadata records the import summary under a fresh import id.
func (r *Repository) WriteMetadata(summary importer.Summary) error {
	importedAt := summary.CompletedAt
	if importedAt.IsZero() {
		importedAt = r.now()
	}
	md := ImportMetadata{
		ImportID:   uuid.NewString(),
		ImportedAt: importedAt.UTC(),
		Source:     SourceFirefox,
		SourceProfile: SourceProfile{
			ID:   summary.Profile.ID,
			Name: summary.Profile.Name,
			Path: summary.Profile.Path,
		},
		Stats:    summary.Stats,
		Settings: summary.Settings,
	}
	if err := writeJSON(filepath.Join(r.Paths.Home, MetadataFileName), md); err != nil {
		return fmt.Errorf("write import metadata: %w", err)
	}
	return nil
}

// ReadBookmarks loads the nested bookmark tree.
func (r *Repository) ReadBookmarks() ([]bookmarks.TreeNode, error) {
	var out []bookmarks.TreeNode
	if err := readJSON(filepath.Join(r.Paths.Bookmarks, BookmarksFileName), &out); err != nil {
		return nil, fmt.Errorf("read bookmarks: %w", err)
	}
	return out, nil
}

// ReadBookmarkIndex loads the flat bookmark index.
func (r *Repository) ReadBookmarkIndex() ([]bookmarks.IndexEntry, error) {
	var out []bookmarks.IndexEntry
	if err := readJSON(filepath.Join(r.Paths.Bookmarks, BookmarkIndexFileName), &out); err != nil {
		return nil, fmt.Errorf("read bookmark index: %w", err)
	}
	return out, nil
}

// ReadPasswordIndex loads the credential index. Ciphertext is never read.
func (r *Repository) ReadPasswordIndex() ([]vault.IndexEntry, error) {
	var out []vault.IndexEntry
	if err := readJSON(filepath.Join(r.Paths.Passwords, PasswordIndexFileName), &out); err != nil {
		return nil, fmt.Errorf("read password index: %w", err)
	}
	return out, nil
}

// ReadMetadata loads the last import summary.
func (r *Repository) ReadMetadata() (ImportMetadata, error) {
	var md ImportMetadata
	if err := readJSON(filepath.Join(r.Paths.Home, MetadataFileName), &md); err != nil {
		return ImportMetadata{}, fmt.Errorf("read import metadata: %w", err)
	}
	return md, nil
}

// ListImported returns the destination profiles under root that hold a
// completed import, sorted by name.
func ListImported(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, "profiles"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list imported profiles: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, "profiles", entry.Name(), MetadataFileName)); err == nil {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// History opens the chunked history store.
func (r *Repository) History() *history.Store {
	return history.Open(os.DirFS(r.Paths.History))
}

func (r *Repository) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
