// Package api exposes the annotation engine over HTTP for the desktop
// frontend: document open and save, annotation CRUD, restoration,
// import/export, and settings.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/AkutaZehy/Annoti/internal/config"
	"github.com/AkutaZehy/Annoti/internal/session"
	"github.com/AkutaZehy/Annoti/internal/settings"
	"github.com/AkutaZehy/Annoti/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	sessions *session.Manager
	store    *storage.Store
	settings *settings.Manager
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(sessions *session.Manager, store *storage.Store, st *settings.Manager, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		sessions: sessions,
		store:    store,
		settings: st,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		// The desktop build runs keyless on localhost; a key turns auth on.
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Get("/api/user", s.handleGetUser)
		r.Put("/api/user/name", s.handleRenameUser)
		r.Get("/api/user/random-name", s.handleRandomName)

		r.Post("/api/documents/open", s.handleOpenDocument)
		r.Post("/api/documents/save", s.handleSaveDocument)
		r.Get("/api/documents", s.handleListDocuments)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
		r.Get("/api/render", s.handleRender)

		r.Get("/api/annotations", s.handleListAnnotations)
		r.Post("/api/annotations", s.handleCreateAnnotation)
		r.Patch("/api/annotations/{id}", s.handleUpdateAnnotation)
		r.Delete("/api/annotations/{id}", s.handleDeleteAnnotation)
		r.Post("/api/annotations/{id}/activate", s.handleActivate)
		r.Post("/api/annotations/flush", s.handleFlush)

		r.Post("/api/import", s.handleImport)
		r.Get("/api/export/package", s.handleExportPackage)
		r.Get("/api/export/html", s.handleExportHTML)

		r.Get("/api/settings", s.handleGetSettings)
		r.Put("/api/settings", s.handlePutSettings)
		r.Get("/api/ui-settings", s.handleGetUISettings)
		r.Put("/api/ui-settings", s.handlePutUISettings)
		r.Get("/api/typography", s.handleGetTypography)
		r.Put("/api/typography", s.handlePutTypography)

		r.Post("/api/migrate", s.handleMigrate)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// active returns the live session or writes a 409.
func (s *Server) active(w http.ResponseWriter) *session.Session {
	sess := s.sessions.Active()
	if sess == nil {
		jsonError(w, "no open document", http.StatusConflict)
		return nil
	}
	return sess
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
