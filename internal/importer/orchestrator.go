package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/sloppy/foxport/internal/bookmarks"
	"github.com/sloppy/foxport/internal/discovery"
	"github.com/sloppy/foxport/internal/history"
	"github.com/sloppy/foxport/internal/places"
	"github.com/sloppy/foxport/internal/prefs"
	"github.com/sloppy/foxport/internal/vault"
)

// Stage names one step of a profile import.
type Stage string

const (
	StageBookmarks Stage = "bookmarks"
	StageHistory   Stage = "history"
	StagePasswords Stage = "passwords"
	StageSettings  Stage = "settings"
	StageComplete  Stage = "complete"
)

// maxEvents bounds the progress events of one run: four stage events, or up
// to three followed by a terminal error.
const maxEvents = 5

// Progress is one event on a run's progress stream.
type Progress struct {
	Stage   Stage
	Percent int
	Message string
	Err     error
}

// Stats holds the final collection sizes of an import.
type Stats struct {
	BookmarksCount int `json:"bookmarksCount"`
	HistoryCount   int `json:"historyCount"`
	PasswordsCount int `json:"passwordsCount"`
}

// Result aggregates everything extracted from one profile.
type Result struct {
	Bookmarks bookmarks.Forest
	History   []history.Entry
	Passwords []vault.Credential
	Settings  prefs.Settings
	Stats     Stats
}

// Summary is handed to the sink once every stage has run.
type Summary struct {
	Profile     discovery.Profile
	Stats       Stats
	Settings    prefs.Settings
	CompletedAt time.Time
}

// Sink persists the output of each stage.
type Sink interface {
	WriteBookmarks(forest bookmarks.Forest) error
	WriteHistory(entries []history.Entry) error
	WritePasswords(creds []vault.Credential) error
	WriteMetadata(summary Summary) error
}

// Orchestrator runs the staged import of a Firefox profile.
type Orchestrator struct {
	Vault      *vault.Vault
	MaxHistory int
	Now        func() time.Time
	Logger     *log.Logger
}

// New returns an Orchestrator with the default history cap.
func New(v *vault.Vault) *Orchestrator {
	return &Orchestrator{
		Vault:      v,
		MaxHistory: history.DefaultMaxEntries,
		Now:        time.Now,
	}
}

func (o *Orchestrator) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Run is an import in flight.
type Run struct {
	progress chan Progress
	done     chan struct{}
	result   *Result
	err      error
}

// Progress returns the run's event stream. Events arrive in stage order and
// the channel is closed after the terminal event.
func (r *Run) Progress() <-chan Progress {
	return r.progress
}

// Wait blocks until the run finishes.
func (r *Run) Wait() (*Result, error) {
	<-r.done
	return r.result, r.err
}

// Start launches the import of profile into sink on its own goroutine.
func (o *Orchestrator) Start(ctx context.Context, profile discovery.Profile, sink Sink) *Run {
	r := &Run{
		progress: make(chan Progress, maxEvents),
		done:     make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		defer close(r.progress)
		r.result, r.err = o.run(ctx, profile, sink, func(p Progress) {
			r.progress <- p
		})
	}()
	return r
}

// ImportProfile imports profile into sink and discards progress events.
func (o *Orchestrator) ImportProfile(ctx context.Context, profile discovery.Profile, sink Sink) (*Result, error) {
	return o.Start(ctx, profile, sink).Wait()
}

func (o *Orchestrator) run(ctx context.Context, profile discovery.Profile, sink Sink, emit func(Progress)) (*Result, error) {
	fail := func(stage Stage, err error) (*Result, error) {
		emit(Progress{Stage: stage, Percent: 0, Message: err.Error(), Err: err})
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return fail(StageBookmarks, err)
	}
	emit(Progress{Stage: StageBookmarks, Percent: 0, Message: "Importing bookmarks and history"})
	forest, entries, err := o.readPlaces(profile.Path)
	if err != nil {
		return fail(StageBookmarks, err)
	}
	if err := sink.WriteBookmarks(forest); err != nil {
		return fail(StageBookmarks, fmt.Errorf("write bookmarks: %w", err))
	}
	if err := sink.WriteHistory(entries); err != nil {
		return fail(StageHistory, fmt.Errorf("write history: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return fail(StagePasswords, err)
	}
	emit(Progress{Stage: StagePasswords, Percent: 50, Message: "Importing saved passwords"})
	creds := o.Vault.Extract(profile.Path)
	if err := sink.WritePasswords(creds); err != nil {
		return fail(StagePasswords, fmt.Errorf("write passwords: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return fail(StageSettings, err)
	}
	emit(Progress{Stage: StageSettings, Percent: 75, Message: "Importing settings"})
	settings := prefs.ParseFile(filepath.Join(profile.Path, prefs.FileName))

	result := &Result{
		Bookmarks: forest,
		History:   entries,
		Passwords: creds,
		Settings:  settings,
		Stats: Stats{
			BookmarksCount: forest.Count(),
			HistoryCount:   len(entries),
			PasswordsCount: len(creds),
		},
	}
	if err := sink.WriteMetadata(Summary{
		Profile:     profile,
		Stats:       result.Stats,
		Settings:    settings,
		CompletedAt: o.now(),
	}); err != nil {
		return fail(StageSettings, fmt.Errorf("write metadata: %w", err))
	}

	emit(Progress{Stage: StageComplete, Percent: 100, Message: "Import complete"})
	o.logger().Printf("[Importer] imported %q: %d bookmarks, %d history entries, %d passwords",
		profile.Name, result.Stats.BookmarksCount, result.Stats.HistoryCount, result.Stats.PasswordsCount)
	return result, nil
}

func (o *Orchestrator) readPlaces(profileDir string) (bookmarks.Forest, []history.Entry, error) {
	path := filepath.Join(profileDir, places.FileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return bookmarks.Forest{}, nil, &MissingSourceError{Path: path}
		}
		return bookmarks.Forest{}, nil, &MalformedDataError{Path: path, Err: err}
	}

	db, err := places.Open(path)
	if err != nil {
		return bookmarks.Forest{}, nil, &MalformedDataError{Path: path, Err: err}
	}
	defer db.Close()

	rows, err := db.Bookmarks()
	if err != nil {
		return bookmarks.Forest{}, nil, &MalformedDataError{Path: path, Err: err}
	}
	limit := o.MaxHistory
	if limit <= 0 {
		limit = history.DefaultMaxEntries
	}
	visits, err := db.History(limit)
	if err != nil {
		return bookmarks.Forest{}, nil, &MalformedDataError{Path: path, Err: err}
	}
	return bookmarks.Build(rows), history.Cap(history.FromRows(visits), limit), nil
}

// ImportAll imports profiles one at a time. The first failure stops the
// batch and is returned with the results gathered so far. onProgress may be
// nil.
func (o *Orchestrator) ImportAll(ctx context.Context, profiles []discovery.Profile, sinkFor func(discovery.Profile) (Sink, error), onProgress func(discovery.Profile, Progress)) ([]*Result, error) {
	results := make([]*Result, 0, len(profiles))
	for _, profile := range profiles {
		sink, err := sinkFor(profile)
		if err != nil {
			return results, fmt.Errorf("open destination for %s: %w", profile.Name, err)
		}
		run := o.Start(ctx, profile, sink)
		for p := range run.Progress() {
			if onProgress != nil {
				onProgress(profile, p)
			}
		}
		result, err := run.Wait()
		if err != nil {
			return results, fmt.Errorf("import profile %s: %w", profile.Name, err)
		}
		results = append(results, result)
	}
	return results, nil
}
