package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sloppy/foxport/internal/discovery"
)

// InstallationScanner finds Firefox installations on demand.
type InstallationScanner interface {
	Scan() []discovery.Installation
}

// Server wires the web handlers and dependencies.
type Server struct {
	Scanner         InstallationScanner
	DestinationRoot string
	Router          chi.Router
}

// NewServer constructs the router and registers routes.
func NewServer(scanner InstallationScanner, destinationRoot string) *Server {
	server := &Server{Scanner: scanner, DestinationRoot: destinationRoot}

	r := chi.NewRouter()
	r.Get("/", server.handleRoot)
	r.Get("/imports/{profile}", server.handleImportDetail)
	r.Get("/api/installations", server.handleInstallations)
	r.Get("/api/imports", server.handleImportsList)
	r.Get("/api/imports/{profile}/metadata", server.handleImportMetadata)
	r.Get("/api/imports/{profile}/bookmarks", server.handleImportBookmarks)
	r.Get("/api/imports/{profile}/passwords", server.handleImportPasswords)
	r.Get("/api/imports/{profile}/history", server.handleImportHistory)
	r.Get("/api/imports/{profile}/export", server.handleImportExport)

	server.Router = r
	return server
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.Router
}
