package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sloppy/foxport/internal/places"
)

const (
	DefaultMaxEntries = 10000
	DefaultChunkSize  = 1000
	IndexFileName     = "history-index.json"
)

// Entry is one imported history item.
type Entry struct {
	ID            int64     `json:"id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	VisitCount    int64     `json:"visitCount"`
	LastVisitTime time.Time `json:"lastVisitTime"`
	Typed         bool      `json:"typed"`
}

// Index summarizes a chunked history without loading the chunks.
type Index struct {
	TotalEntries int       `json:"totalEntries"`
	ChunkCount   int       `json:"chunkCount"`
	ChunkSize    int       `json:"chunkSize"`
	LastUpdated  time.Time `json:"lastUpdated"`
	Domains      []string  `json:"domains"`
}

// ChunkFileName returns the file name of chunk n.
func ChunkFileName(n int) string {
	return fmt.Sprintf("history-%03d.json", n)
}

// FromRows converts places rows to entries.
func FromRows(rows []places.HistoryRow) []Entry {
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, Entry{
			ID:            r.ID,
			URL:           r.URL,
			Title:         r.Title,
			VisitCount:    r.VisitCount,
			LastVisitTime: r.LastVisitTime,
			Typed:         r.Typed,
		})
	}
	return out
}

// Cap sorts entries newest first and truncates them to limit.
func Cap(entries []Entry, limit int) []Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastVisitTime.After(entries[j].LastVisitTime)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Domains returns the sorted set of distinct hostnames among entries.
func Domains(entries []Entry) []string {
	seen := make(map[string]struct{})
	for _, e := range entries {
		u, err := url.Parse(e.URL)
		if err != nil || u.Hostname() == "" {
			continue
		}
		seen[u.Hostname()] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for host := range seen {
		out = append(out, host)
	}
	sort.Strings(out)
	return out
}

// Write splits entries into chunk files of chunkSize entries in dir and
// writes the index. Entries must already be capped and sorted.
func Write(dir string, entries []Entry, chunkSize int, now time.Time) (Index, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Index{}, fmt.Errorf("create history dir: %w", err)
	}

	chunks := 0
	for start := 0; start < len(entries); start += chunkSize {
		end := min(start+chunkSize, len(entries))
		if err := writeJSON(filepath.Join(dir, ChunkFileName(chunks)), entries[start:end]); err != nil {
			return Index{}, fmt.Errorf("write history chunk %d: %w", chunks, err)
		}
		chunks++
	}

	index := Index{
		TotalEntries: len(entries),
		ChunkCount:   chunks,
		ChunkSize:    chunkSize,
		LastUpdated:  now.UTC(),
		Domains:      Domains(entries),
	}
	if err := writeJSON(filepath.Join(dir, IndexFileName), index); err != nil {
		return Index{}, fmt.Errorf("write history index: %w", err)
	}
	return index, nil
}

// Store reads a chunked history from a file system rooted at the history dir.
type Store struct {
	fsys fs.FS
}

// Open returns a Store over fsys, typically os.DirFS(historyDir).
func Open(fsys fs.FS) *Store {
	return &Store{fsys: fsys}
}

// Index loads the history index. A missing index reads as empty.
func (s *Store) Index() (Index, error) {
	var index Index
	if err := s.readJSON(IndexFileName, &index); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Index{Domains: []string{}}, nil
		}
		return Index{}, fmt.Errorf("read history index: %w", err)
	}
	return index, nil
}

// Read returns up to limit entries, newest first, loading only as many
// chunks as needed. limit <= 0 reads everything.
func (s *Store) Read(limit int) ([]Entry, error) {
	index, err := s.Index()
	if err != nil {
		return nil, err
	}

	want := index.TotalEntries
	if limit > 0 && limit < want {
		want = limit
	}
	out := make([]Entry, 0, want)
	for n := 0; n < index.ChunkCount && len(out) < want; n++ {
		var chunk []Entry
		if err := s.readJSON(ChunkFileName(n), &chunk); err != nil {
			return nil, fmt.Errorf("read history chunk %d: %w", n, err)
		}
		out = append(out, chunk...)
	}
	if len(out) > want {
		out = out[:want]
	}
	return out, nil
}

func (s *Store) readJSON(name string, v any) error {
	f, err := s.fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}

func writeJSON(path string, v any) error {
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
