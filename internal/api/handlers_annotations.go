package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/AkutaZehy/Annoti/internal/anchor"
	"github.com/AkutaZehy/Annoti/internal/annotation"
	"github.com/AkutaZehy/Annoti/internal/export"
	"github.com/AkutaZehy/Annoti/internal/session"
	"github.com/AkutaZehy/Annoti/internal/username"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	sess := s.active(w)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"annotations": sess.Store.Annotations()})
}

// endpoint addresses one end of a selection on the live tree.
type endpoint struct {
	ContainerPath string `json:"containerPath"`
	LeafOrdinal   int    `json:"leafOrdinal"`
	Offset        int    `json:"offset"`
}

type createAnnotationRequest struct {
	Start          endpoint `json:"start"`
	End            endpoint `json:"end"`
	HighlightColor string   `json:"highlightColor"`
	HighlightType  string   `json:"highlightType"`
}

// resolve turns an endpoint into a position on the live tree.
func resolve(sess *session.Session, ep endpoint) (anchor.Position, error) {
	container, err := anchor.Resolve(sess.Root, ep.ContainerPath)
	if err != nil {
		return anchor.Position{}, err
	}
	leaf := container.TextLeafAt(ep.LeafOrdinal)
	if leaf == nil {
		return anchor.Position{}, anchor.ErrLeafNotFound
	}
	return anchor.Position{Leaf: leaf, Offset: ep.Offset}, nil
}

// handleCreateAnnotation captures a selection on the live tree.
func (s *Server) handleCreateAnnotation(w http.ResponseWriter, r *http.Request) {
	sess := s.active(w)
	if sess == nil {
		return
	}
	var req createAnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start, err := resolve(sess, req.Start)
	if err != nil {
		jsonError(w, "selection start: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	end, err := resolve(sess, req.End)
	if err != nil {
		jsonError(w, "selection end: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	u, err := s.store.GetOrCreateUser(username.Random())
	if err != nil {
		jsonError(w, "loading user: "+err.Error(), http.StatusInternalServerError)
		return
	}

	a, err := sess.Annotate(
		anchor.Selection{Start: start, End: end},
		u.ID, u.Name, req.HighlightColor, req.HighlightType,
	)
	if errors.Is(err, session.ErrCollapsedSelection) || errors.Is(err, annotation.ErrEmptyAnchors) {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		jsonError(w, "creating annotation: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type updateAnnotationRequest struct {
	Note           *string           `json:"note"`
	NoteVisible    *bool             `json:"noteVisible"`
	NotePosition   *annotation.Point `json:"notePosition"`
	NoteSize       *annotation.Size  `json:"noteSize"`
	HighlightColor *string           `json:"highlightColor"`
	HighlightType  *string           `json:"highlightType"`
}

func (s *Server) handleUpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	sess := s.active(w)
	if sess == nil {
		return
	}
	id := chi.URLParam(r, "id")
	var req updateAnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ok := sess.Store.Update(id, annotation.Patch{
		Note:           req.Note,
		NoteVisible:    req.NoteVisible,
		NotePosition:   req.NotePosition,
		NoteSize:       req.NoteSize,
		HighlightColor: req.HighlightColor,
		HighlightType:  req.HighlightType,
	})
	if !ok {
		jsonError(w, "annotation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.Store.Get(id))
}

func (s *Server) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	sess := s.active(w)
	if sess == nil {
		return
	}
	id := chi.URLParam(r, "id")
	removed := sess.Delete(id)
	if removed == nil {
		jsonError(w, "annotation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, removed)
}

// handleActivate forwards a highlight click: the sticky note wakes at
// the pointer.
func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	sess := s.active(w)
	if sess == nil {
		return
	}
	id := chi.URLParam(r, "id")
	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !sess.Markers.Activate(id, req.X, req.Y) {
		jsonError(w, "annotation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.Store.Get(id))
}

// handleFlush forces the debounced persistence write.
func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	sess := s.active(w)
	if sess == nil {
		return
	}
	if err := sess.Store.ForceFlush(); err != nil {
		jsonError(w, "flush failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}

// handleImport merges an annotation package into the open document.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	sess := s.active(w)
	if sess == nil {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		jsonError(w, "reading package: "+err.Error(), http.StatusBadRequest)
		return
	}
	result, err := sess.Import(data)
	if err != nil {
		jsonError(w, "import failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accepted":   result.Accepted,
		"duplicates": result.DuplicateCount,
		"rejected":   result.RejectedCount,
	})
}

func (s *Server) handleExportPackage(w http.ResponseWriter, r *http.Request) {
	sess := s.active(w)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, sess.ExportPackage())
}

func (s *Server) handleExportHTML(w http.ResponseWriter, r *http.Request) {
	sess := s.active(w)
	if sess == nil {
		return
	}
	showNotes, _ := strconv.ParseBool(r.URL.Query().Get("show_notes"))
	page, err := sess.ExportHTML(export.Options{ShowNotes: showNotes})
	if err != nil {
		jsonError(w, "export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}
