// Package session wires one open document end to end: render the tree,
// load its annotations, restore highlights, and expose the operations the
// command surface calls. One session is live at a time; opening a
// document closes the previous one after flushing it.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/AkutaZehy/Annoti/internal/anchor"
	"github.com/AkutaZehy/Annoti/internal/annotation"
	"github.com/AkutaZehy/Annoti/internal/domtree"
	"github.com/AkutaZehy/Annoti/internal/export"
	"github.com/AkutaZehy/Annoti/internal/highlight"
	"github.com/AkutaZehy/Annoti/internal/render"
	"github.com/AkutaZehy/Annoti/internal/restore"
	"github.com/AkutaZehy/Annoti/internal/stickynote"
	"github.com/AkutaZehy/Annoti/internal/storage"
)

// ErrNoSession is returned when an operation needs an open document.
var ErrNoSession = errors.New("no open document")

// ErrCollapsedSelection rejects annotating a selection with no text.
var ErrCollapsedSelection = errors.New("selection is collapsed")

// Session is one open document: its tree, annotation store, markers, and
// sticky notes.
type Session struct {
	Doc     *storage.Document
	Root    *domtree.Node
	Store   *annotation.Store
	Markers *highlight.Manager
	Notes   *stickynote.Manager

	// Load and Restored report what opening found: persisted annotation
	// count or quarantine, and the per-annotation restoration outcomes.
	Load     annotation.LoadResult
	Restored restore.Report
}

// Manager owns the single live session and the collaborators shared
// across documents.
type Manager struct {
	mu        sync.Mutex
	storage   *storage.Store
	store     *annotation.Store
	log       *slog.Logger
	wrapWidth int

	active *Session
}

// NewManager creates a session manager. wrapWidth is the plain-text
// rendering width; non-positive selects the default.
func NewManager(st *storage.Store, flushDelay time.Duration, wrapWidth int, log *slog.Logger) *Manager {
	if wrapWidth <= 0 {
		wrapWidth = render.DefaultWrapWidth
	}
	return &Manager{
		storage:   st,
		store:     annotation.NewStore(st, flushDelay, log),
		log:       log,
		wrapWidth: wrapWidth,
	}
}

// Open renders the document, switches the annotation store to it, and
// restores its highlights against the fresh tree. Restoration runs
// exactly once here; the tree stays live until the next Open. Any
// previous session is flushed first.
func (m *Manager) Open(path, content string, vp stickynote.Viewport) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.storage.SaveDocument(path, content)
	if err != nil {
		return nil, fmt.Errorf("registering document: %w", err)
	}
	root, err := render.Document(content, path, m.wrapWidth)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", path, err)
	}

	load, err := m.store.SetDocument(doc.ID)
	if err != nil {
		// The store already opened empty; the session is still usable.
		m.log.Warn("opening with empty annotation set", "path", path, "error", err)
	}

	markers := highlight.NewManager(root, m.log)
	notes := stickynote.NewManager(m.store, vp, m.log)
	markers.OnWake(func(groupID string, x, y float64) {
		notes.Wake(groupID, x, y)
	})

	report := restore.NewEngine(markers, m.log).Restore(m.store.Annotations())

	m.active = &Session{
		Doc:      doc,
		Root:     root,
		Store:    m.store,
		Markers:  markers,
		Notes:    notes,
		Load:     load,
		Restored: report,
	}
	m.log.Info("document opened",
		"path", path,
		"annotations", load.Count,
		"restored", report.Restored,
		"partial", report.Partial,
		"failed", report.Failed,
	)
	return m.active, nil
}

// Active returns the live session, or nil.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Close flushes and drops the live session.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = nil
	return m.store.Close()
}

// Annotate captures the selection into a persisted annotation and wraps
// its highlight immediately.
func (s *Session) Annotate(sel anchor.Selection, authorID, authorName, color, highlightType string) (*annotation.Annotation, error) {
	if sel.Collapsed() {
		return nil, ErrCollapsedSelection
	}
	anchors := anchor.Extract(sel)
	a, err := s.Store.Create(sel.Text(), anchors, authorID, authorName, color, highlightType)
	if err != nil {
		return nil, err
	}
	s.Markers.Wrap(a.Anchors, a.ID)
	return a, nil
}

// Delete removes the annotation and all its marker fragments. Returns
// the removed annotation, or nil.
func (s *Session) Delete(id string) *annotation.Annotation {
	s.Markers.Unwrap(id)
	return s.Store.Delete(id)
}

// HTML serializes the live tree, markers included.
func (s *Session) HTML() string {
	return s.Root.HTML()
}

// Import merges a parsed package into the store and wraps the accepted
// annotations on the live tree.
func (s *Session) Import(data []byte) (annotation.MergeResult, error) {
	pkg, err := annotation.ParsePackage(data)
	if err != nil {
		return annotation.MergeResult{}, err
	}
	result := s.Store.Merge(pkg.Annotations)
	for _, a := range result.Accepted {
		s.Markers.Wrap(a.Anchors, a.ID)
	}
	return result, nil
}

// ExportPackage builds the interchange package for the open document.
func (s *Session) ExportPackage() *annotation.Package {
	return annotation.BuildPackage(
		&annotation.SourceDocument{
			Name:     filepath.Base(s.Doc.Path),
			Checksum: s.Doc.Checksum,
		},
		s.Store.Annotations(),
	)
}

// ExportHTML renders the readonly page from the live tree.
func (s *Session) ExportHTML(opts export.Options) (string, error) {
	if opts.Title == "" {
		opts.Title = filepath.Base(s.Doc.Path)
	}
	return export.Page(s.HTML(), s.Store.Annotations(), opts)
}
