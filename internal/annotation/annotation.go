// Package annotation holds the annotation model and the per-document
// store that mediates CRUD, import merging, and debounced persistence.
package annotation

import (
	"errors"
	"fmt"

	"github.com/AkutaZehy/Annoti/internal/anchor"
)

// Editor defaults, matching the desktop application.
const (
	DefaultHighlightColor = "#ffd700"
	DefaultHighlightType  = "underline"
	DefaultNoteWidth      = 280
	DefaultNoteHeight     = 180
)

// Point is a content-space coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a sticky note extent in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Annotation is one highlight plus its note: ordered anchors locating the
// highlighted runs, author metadata, and the sticky note view state.
type Annotation struct {
	ID             string          `json:"id"`
	AuthorID       string          `json:"authorId"`
	AuthorName     string          `json:"authorName"`
	SourceText     string          `json:"sourceText"`
	Anchors        []anchor.Anchor `json:"anchors"`
	Note           string          `json:"note"`
	HighlightColor string          `json:"highlightColor"`
	HighlightType  string          `json:"highlightType"`
	CreatedAt      int64           `json:"createdAt"`
	UpdatedAt      int64           `json:"updatedAt"`
	NoteVisible    bool            `json:"noteVisible"`
	NotePosition   Point           `json:"notePosition"`
	NoteSize       Size            `json:"noteSize"`
}

// Clone returns a deep copy; anchors are copied so callers cannot alias
// store state.
func (a *Annotation) Clone() *Annotation {
	c := *a
	c.Anchors = make([]anchor.Anchor, len(a.Anchors))
	copy(c.Anchors, a.Anchors)
	return &c
}

// ErrNotFound is returned by storage when a document has no persisted
// annotations.
var ErrNotFound = errors.New("annotations not found")

// ErrEmptyAnchors rejects an annotation without a single anchor.
var ErrEmptyAnchors = errors.New("annotation has no anchors")

// CorruptDataError marks persisted data that cannot be decoded. The store
// quarantines it instead of propagating it.
type CorruptDataError struct {
	DocumentID string
	Reason     string
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt annotation data for document %s: %s", e.DocumentID, e.Reason)
}

// Storage is the persistence collaborator. The medium is opaque; the
// store only ever reads and writes the full collection of one document.
type Storage interface {
	// LoadAnnotations returns the persisted collection, ErrNotFound when
	// the document has none, or a *CorruptDataError.
	LoadAnnotations(documentID string) ([]*Annotation, error)
	// SaveAnnotations replaces the persisted collection.
	SaveAnnotations(documentID string, anns []*Annotation) error
	// QuarantineAnnotations backs corrupt data up out of the way and
	// returns the backup location.
	QuarantineAnnotations(documentID string) (string, error)
}
