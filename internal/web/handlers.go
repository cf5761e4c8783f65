package web

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sloppy/foxport/internal/config"
	"github.com/sloppy/foxport/internal/discovery"
	"github.com/sloppy/foxport/internal/export"
	"github.com/sloppy/foxport/internal/repository"
)

const (
	defaultHistoryLimit = 100
	detailHistoryLimit  = 25
)

// profileView pairs a discovered profile with its validation and metadata.
type profileView struct {
	Profile    discovery.Profile
	Validation discovery.Validation
	Metadata   discovery.Metadata
}

type installationView struct {
	Installation discovery.Installation
	Profiles     []profileView
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	installs := s.Scanner.Scan()
	views := make([]installationView, 0, len(installs))
	for _, inst := range installs {
		view := installationView{Installation: inst}
		for _, p := range inst.Profiles {
			view.Profiles = append(view.Profiles, profileView{
				Profile:    p,
				Validation: discovery.Validate(p.Path),
				Metadata:   discovery.ReadMetadata(p.Path),
			})
		}
		views = append(views, view)
	}

	imported, err := repository.ListImported(s.DestinationRoot)
	if err != nil {
		s.serverError(w, err)
		return
	}
	render(w, r, installationsPage(views, imported))
}

func (s *Server) handleImportDetail(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.repositoryFor(w, r)
	if !ok {
		return
	}
	md, err := repo.ReadMetadata()
	if err != nil {
		s.repositoryError(w, err)
		return
	}
	entries, err := repo.History().Read(detailHistoryLimit)
	if err != nil {
		s.serverError(w, err)
		return
	}
	render(w, r, importDetailPage(repo.Paths.Name, md, entries))
}

func (s *Server) handleInstallations(w http.ResponseWriter, r *http.Request) {
	installs := s.Scanner.Scan()
	if installs == nil {
		installs = []discovery.Installation{}
	}
	s.jsonResponse(w, installs, http.StatusOK)
}

func (s *Server) handleImportsList(w http.ResponseWriter, r *http.Request) {
	names, err := repository.ListImported(s.DestinationRoot)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.jsonResponse(w, names, http.StatusOK)
}

func (s *Server) handleImportMetadata(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.repositoryFor(w, r)
	if !ok {
		return
	}
	md, err := repo.ReadMetadata()
	if err != nil {
		s.repositoryError(w, err)
		return
	}
	s.jsonResponse(w, md, http.StatusOK)
}

func (s *Server) handleImportBookmarks(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.repositoryFor(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("view") == "index" {
		index, err := repo.ReadBookmarkIndex()
		if err != nil {
			s.repositoryError(w, err)
			return
		}
		s.jsonResponse(w, index, http.StatusOK)
		return
	}
	tree, err := repo.ReadBookmarks()
	if err != nil {
		s.repositoryError(w, err)
		return
	}
	s.jsonResponse(w, tree, http.StatusOK)
}

func (s *Server) handleImportPasswords(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.repositoryFor(w, r)
	if !ok {
		return
	}
	index, err := repo.ReadPasswordIndex()
	if err != nil {
		s.repositoryError(w, err)
		return
	}
	s.jsonResponse(w, index, http.StatusOK)
}

func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.repositoryFor(w, r)
	if !ok {
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if _, err := repo.ReadMetadata(); err != nil {
		s.repositoryError(w, err)
		return
	}
	entries, err := repo.History().Read(limit)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.jsonResponse(w, entries, http.StatusOK)
}

func (s *Server) handleImportExport(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.repositoryFor(w, r)
	if !ok {
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "json"
	}
	data := strings.ToLower(r.URL.Query().Get("data"))
	write, err := export.Writer(format, data)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if _, err := repo.ReadMetadata(); err != nil {
		s.repositoryError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := write(repo, &buf); err != nil {
		s.serverError(w, err)
		return
	}
	contentType, ext := "application/json", "json"
	switch format {
	case "csv":
		contentType, ext = "text/csv; charset=utf-8", "csv"
	case "text":
		contentType, ext = "text/plain; charset=utf-8", "txt"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", repo.Paths.Name+"."+ext))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// repositoryFor resolves the {profile} URL parameter. Names that would be
// rewritten by sanitizing are rejected rather than silently redirected.
func (s *Server) repositoryFor(w http.ResponseWriter, r *http.Request) (*repository.Repository, bool) {
	name := chi.URLParam(r, "profile")
	if name == "" || config.SanitizeName(name) != name {
		s.notFound(w, fmt.Errorf("unknown import %q", name))
		return nil, false
	}
	return repository.New(config.GetProfilePaths(s.DestinationRoot, name)), true
}

func (s *Server) repositoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		s.notFound(w, errors.New("import not found"))
		return
	}
	s.serverError(w, err)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return limit, nil
}
