package annotation

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/AkutaZehy/Annoti/internal/anchor"
	"github.com/google/uuid"
)

// DefaultFlushDelay is the debounce window for persistence writes.
const DefaultFlushDelay = 500 * time.Millisecond

// Store owns the ordered annotation collection of exactly one open
// document. Every mutation schedules a debounced flush: the pending timer
// resets per mutation and performs one write of the full collection when
// it fires. All methods are safe for concurrent use; mutations and the
// flush serialize behind one mutex, so a flush never interleaves with a
// mutation beyond coalescing into the same pending write.
type Store struct {
	mu         sync.Mutex
	storage    Storage
	log        *slog.Logger
	flushDelay time.Duration

	docID string
	anns  []*Annotation
	timer *time.Timer
	dirty bool
}

// NewStore creates a store backed by the given storage. A non-positive
// flushDelay selects the default.
func NewStore(st Storage, flushDelay time.Duration, log *slog.Logger) *Store {
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}
	return &Store{storage: st, log: log, flushDelay: flushDelay}
}

// LoadResult reports what SetDocument found.
type LoadResult struct {
	Count       int    `json:"count"`
	Quarantined bool   `json:"quarantined"`
	BackupPath  string `json:"backupPath,omitempty"`
}

// SetDocument switches the store to a new document: any pending flush for
// the previous document is completed, the collection is cleared, and the
// new document's annotations are loaded. Corrupt persisted data is
// quarantined — backed up, the store starts empty — never thrown; an I/O
// failure opens the document with an empty collection and a warning.
func (s *Store) SetDocument(id string) (LoadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	if s.dirty && s.docID != "" {
		s.flushLocked()
	}
	s.docID = id
	s.anns = nil
	s.dirty = false

	loaded, err := s.storage.LoadAnnotations(id)
	if err == nil {
		s.anns = loaded
		return LoadResult{Count: len(loaded)}, nil
	}
	if errors.Is(err, ErrNotFound) {
		return LoadResult{}, nil
	}

	var corrupt *CorruptDataError
	if errors.As(err, &corrupt) {
		backup, qErr := s.storage.QuarantineAnnotations(id)
		if qErr != nil {
			s.log.Warn("quarantine failed", "document_id", id, "error", qErr)
		}
		s.log.Warn("corrupt annotation data quarantined",
			"document_id", id, "reason", corrupt.Reason, "backup", backup)
		return LoadResult{Quarantined: true, BackupPath: backup}, nil
	}

	s.log.Warn("loading annotations failed", "document_id", id, "error", err)
	return LoadResult{}, err
}

// DocumentID returns the id of the currently open document.
func (s *Store) DocumentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docID
}

// Create appends a new annotation for a captured selection and schedules
// a flush. Empty color or highlight type fall back to the editor
// defaults.
func (s *Store) Create(sourceText string, anchors []anchor.Anchor, authorID, authorName, color, highlightType string) (*Annotation, error) {
	if len(anchors) == 0 {
		return nil, ErrEmptyAnchors
	}
	if color == "" {
		color = DefaultHighlightColor
	}
	if highlightType == "" {
		highlightType = DefaultHighlightType
	}

	now := time.Now().UnixMilli()
	a := &Annotation{
		ID:             uuid.NewString(),
		AuthorID:       authorID,
		AuthorName:     authorName,
		SourceText:     sourceText,
		Anchors:        append([]anchor.Anchor(nil), anchors...),
		HighlightColor: color,
		HighlightType:  highlightType,
		CreatedAt:      now,
		UpdatedAt:      now,
		NoteSize:       Size{Width: DefaultNoteWidth, Height: DefaultNoteHeight},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.anns = append(s.anns, a)
	s.scheduleFlushLocked()
	return a.Clone(), nil
}

// Patch carries the mutable annotation fields; nil fields are untouched.
type Patch struct {
	Note           *string
	NoteVisible    *bool
	NotePosition   *Point
	NoteSize       *Size
	HighlightColor *string
	HighlightType  *string
}

// Update applies the patch and schedules a flush. Reports whether the
// annotation exists.
func (s *Store) Update(id string, p Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.getLocked(id)
	if a == nil {
		return false
	}
	if p.Note != nil {
		a.Note = *p.Note
	}
	if p.NoteVisible != nil {
		a.NoteVisible = *p.NoteVisible
	}
	if p.NotePosition != nil {
		a.NotePosition = *p.NotePosition
	}
	if p.NoteSize != nil {
		a.NoteSize = *p.NoteSize
	}
	if p.HighlightColor != nil {
		a.HighlightColor = *p.HighlightColor
	}
	if p.HighlightType != nil {
		a.HighlightType = *p.HighlightType
	}
	a.UpdatedAt = time.Now().UnixMilli()
	s.scheduleFlushLocked()
	return true
}

// Delete removes the annotation and schedules a flush. Returns the
// removed annotation, or nil.
func (s *Store) Delete(id string) *Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.anns {
		if a.ID == id {
			s.anns = append(s.anns[:i], s.anns[i+1:]...)
			s.scheduleFlushLocked()
			return a
		}
	}
	return nil
}

// Get returns a copy of the annotation, or nil.
func (s *Store) Get(id string) *Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.getLocked(id); a != nil {
		return a.Clone()
	}
	return nil
}

// Annotations returns copies of the live collection in order.
func (s *Store) Annotations() []*Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Annotation, len(s.anns))
	for i, a := range s.anns {
		out[i] = a.Clone()
	}
	return out
}

// ForceFlush writes the collection immediately, subsuming any pending
// debounce. Used at explicit save points and on document close.
func (s *Store) ForceFlush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	return s.flushLocked()
}

// Close flushes and releases the store on document close.
func (s *Store) Close() error {
	return s.ForceFlush()
}

func (s *Store) getLocked(id string) *Annotation {
	for _, a := range s.anns {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// scheduleFlushLocked resets the debounce timer so rapid mutations
// coalesce into one write reflecting the final state.
func (s *Store) scheduleFlushLocked() {
	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.flushDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.flushLocked()
	})
}

func (s *Store) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// flushLocked performs the single full-collection write. A failed save is
// a warning; the next mutation's debounce retries implicitly.
func (s *Store) flushLocked() error {
	if !s.dirty || s.docID == "" {
		return nil
	}
	s.dirty = false
	snapshot := make([]*Annotation, len(s.anns))
	copy(snapshot, s.anns)
	if err := s.storage.SaveAnnotations(s.docID, snapshot); err != nil {
		s.log.Warn("saving annotations failed", "document_id", s.docID, "error", err)
		return err
	}
	return nil
}
