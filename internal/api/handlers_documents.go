package api

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/AkutaZehy/Annoti/internal/annotation"
	"github.com/AkutaZehy/Annoti/internal/restore"
	"github.com/AkutaZehy/Annoti/internal/stickynote"
	"github.com/AkutaZehy/Annoti/internal/storage"
	"github.com/go-chi/chi/v5"
)

type openRequest struct {
	Path string `json:"path"`
	// Content is optional; when absent the file is read from disk.
	Content  *string             `json:"content"`
	Viewport stickynote.Viewport `json:"viewport"`
}

type openResponse struct {
	Document    *storage.Document        `json:"document"`
	HTML        string                   `json:"html"`
	Annotations []*annotation.Annotation `json:"annotations"`
	Load        annotation.LoadResult    `json:"load"`
	Restored    restore.Report           `json:"restored"`
}

// handleOpenDocument renders the document, restores its annotations, and
// returns the marked-up HTML.
func (s *Server) handleOpenDocument(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}

	content := ""
	if req.Content != nil {
		content = *req.Content
	} else {
		raw, err := os.ReadFile(req.Path)
		if err != nil {
			jsonError(w, "reading document: "+err.Error(), http.StatusNotFound)
			return
		}
		content = string(raw)
	}

	sess, err := s.sessions.Open(req.Path, content, req.Viewport)
	if err != nil {
		jsonError(w, "opening document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, openResponse{
		Document:    sess.Doc,
		HTML:        sess.HTML(),
		Annotations: sess.Store.Annotations(),
		Load:        sess.Load,
		Restored:    sess.Restored,
	})
}

// handleSaveDocument refreshes the stored content snapshot and checksum.
func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}
	doc, err := s.store.SaveDocument(req.Path, req.Content)
	if err != nil {
		jsonError(w, "saving document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments()
	if err != nil {
		jsonError(w, "listing documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := s.store.DeleteDocument(docID); err != nil {
		jsonError(w, "deleting document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": docID})
}

// handleRender returns the live tree's HTML, markers included.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	sess := s.active(w)
	if sess == nil {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(sess.HTML()))
}

// handleMigrate imports legacy sidecar files from a directory.
func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dir string `json:"dir"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Dir == "" {
		jsonError(w, "dir is required", http.StatusBadRequest)
		return
	}
	report, err := s.store.MigrateSidecars(req.Dir)
	if err != nil {
		jsonError(w, "migration failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
