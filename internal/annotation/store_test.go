package annotation

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/AkutaZehy/Annoti/internal/anchor"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStorage records writes so tests can observe the debounce behavior.
type fakeStorage struct {
	mu          sync.Mutex
	saves       []savedWrite
	loaded      []*Annotation
	loadErr     error
	saveErr     error
	quarantines int
}

type savedWrite struct {
	docID string
	anns  []*Annotation
}

func (f *fakeStorage) LoadAnnotations(docID string) ([]*Annotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.loaded == nil {
		return nil, ErrNotFound
	}
	return f.loaded, nil
}

func (f *fakeStorage) SaveAnnotations(docID string, anns []*Annotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	copied := make([]*Annotation, len(anns))
	for i, a := range anns {
		copied[i] = a.Clone()
	}
	f.saves = append(f.saves, savedWrite{docID: docID, anns: copied})
	return nil
}

func (f *fakeStorage) QuarantineAnnotations(docID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quarantines++
	return "/backup/" + docID + ".json", nil
}

func (f *fakeStorage) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeStorage) lastSave() savedWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[len(f.saves)-1]
}

func testAnchors() []anchor.Anchor {
	return []anchor.Anchor{{ContainerPath: "p:nth-of-type(1)", LeafOrdinal: 0, StartOffset: 0, EndOffset: 5}}
}

func newTestStore(t *testing.T, fake *fakeStorage, delay time.Duration) *Store {
	t.Helper()
	s := NewStore(fake, delay, discard())
	if _, err := s.SetDocument("doc1"); err != nil {
		t.Fatalf("set document: %v", err)
	}
	return s
}

func TestCreate_RequiresAnchors(t *testing.T) {
	s := newTestStore(t, &fakeStorage{}, time.Hour)

	if _, err := s.Create("text", nil, "u1", "Ada", "", ""); !errors.Is(err, ErrEmptyAnchors) {
		t.Errorf("expected ErrEmptyAnchors, got %v", err)
	}
}

func TestCreate_AppliesDefaults(t *testing.T) {
	s := newTestStore(t, &fakeStorage{}, time.Hour)

	a, err := s.Create("text", testAnchors(), "u1", "Ada", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == "" {
		t.Error("expected generated id")
	}
	if a.HighlightColor != DefaultHighlightColor || a.HighlightType != DefaultHighlightType {
		t.Errorf("expected defaults, got %q/%q", a.HighlightColor, a.HighlightType)
	}
	if a.NoteSize.Width != DefaultNoteWidth || a.NoteSize.Height != DefaultNoteHeight {
		t.Errorf("expected default note size, got %+v", a.NoteSize)
	}
	if a.CreatedAt == 0 || a.CreatedAt != a.UpdatedAt {
		t.Errorf("expected matching timestamps, got %d/%d", a.CreatedAt, a.UpdatedAt)
	}
}

func TestDebounce_ManyMutationsOneWrite(t *testing.T) {
	fake := &fakeStorage{}
	s := newTestStore(t, fake, 40*time.Millisecond)

	a, err := s.Create("text", testAnchors(), "u1", "Ada", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, note := range []string{"first", "second", "final"} {
		n := note
		if !s.Update(a.ID, Patch{Note: &n}) {
			t.Fatalf("update %q failed", note)
		}
	}

	if got := fake.saveCount(); got != 0 {
		t.Fatalf("expected no write inside the debounce window, got %d", got)
	}
	time.Sleep(150 * time.Millisecond)

	if got := fake.saveCount(); got != 1 {
		t.Fatalf("expected exactly one debounced write, got %d", got)
	}
	saved := fake.lastSave()
	if len(saved.anns) != 1 || saved.anns[0].Note != "final" {
		t.Errorf("expected write to reflect the final state, got %+v", saved.anns)
	}
}

func TestForceFlush_BypassesDebounce(t *testing.T) {
	fake := &fakeStorage{}
	s := newTestStore(t, fake, time.Hour)

	if _, err := s.Create("text", testAnchors(), "u1", "Ada", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.ForceFlush(); err != nil {
		t.Fatalf("force flush: %v", err)
	}
	if got := fake.saveCount(); got != 1 {
		t.Fatalf("expected immediate write, got %d", got)
	}
	// The subsumed timer must not produce a second write.
	if err := s.ForceFlush(); err != nil {
		t.Fatalf("second force flush: %v", err)
	}
	if got := fake.saveCount(); got != 1 {
		t.Errorf("expected no redundant write, got %d", got)
	}
}

func TestUpdate_UnknownID(t *testing.T) {
	s := newTestStore(t, &fakeStorage{}, time.Hour)
	n := "note"
	if s.Update("missing", Patch{Note: &n}) {
		t.Error("expected update of unknown id to report false")
	}
}

func TestDelete_ReturnsRemoved(t *testing.T) {
	s := newTestStore(t, &fakeStorage{}, time.Hour)
	a, _ := s.Create("text", testAnchors(), "u1", "Ada", "", "")

	removed := s.Delete(a.ID)
	if removed == nil || removed.ID != a.ID {
		t.Fatalf("expected removed annotation, got %+v", removed)
	}
	if s.Get(a.ID) != nil {
		t.Error("annotation still present after delete")
	}
	if s.Delete(a.ID) != nil {
		t.Error("expected nil for second delete")
	}
}

func TestSetDocument_FlushesPreviousAndClears(t *testing.T) {
	fake := &fakeStorage{}
	s := newTestStore(t, fake, time.Hour)
	if _, err := s.Create("text", testAnchors(), "u1", "Ada", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.SetDocument("doc2"); err != nil {
		t.Fatalf("set document: %v", err)
	}

	if got := fake.saveCount(); got != 1 {
		t.Fatalf("expected previous document flushed on switch, got %d writes", got)
	}
	if fake.lastSave().docID != "doc1" {
		t.Errorf("flush went to %q, expected doc1", fake.lastSave().docID)
	}
	if len(s.Annotations()) != 0 {
		t.Error("expected empty collection after switching documents")
	}
	if s.DocumentID() != "doc2" {
		t.Errorf("expected doc2, got %q", s.DocumentID())
	}
}

func TestSetDocument_QuarantinesCorruptData(t *testing.T) {
	fake := &fakeStorage{loadErr: &CorruptDataError{DocumentID: "doc1", Reason: "bad anchor json"}}
	s := NewStore(fake, time.Hour, discard())

	result, err := s.SetDocument("doc1")
	if err != nil {
		t.Fatalf("expected corrupt data not to surface as error, got %v", err)
	}
	if !result.Quarantined {
		t.Error("expected quarantine")
	}
	if result.BackupPath == "" {
		t.Error("expected backup path")
	}
	if fake.quarantines != 1 {
		t.Errorf("expected 1 quarantine call, got %d", fake.quarantines)
	}
	if len(s.Annotations()) != 0 {
		t.Error("expected store to initialize empty after quarantine")
	}
}

func TestSetDocument_IOFailureOpensEmpty(t *testing.T) {
	fake := &fakeStorage{loadErr: errors.New("disk gone")}
	s := NewStore(fake, time.Hour, discard())

	_, err := s.SetDocument("doc1")
	if err == nil {
		t.Fatal("expected load error to surface")
	}
	if len(s.Annotations()) != 0 {
		t.Error("expected empty collection after load failure")
	}
}

func TestFlushFailure_RetriedByNextMutation(t *testing.T) {
	fake := &fakeStorage{saveErr: errors.New("disk full")}
	s := newTestStore(t, fake, time.Hour)
	a, _ := s.Create("text", testAnchors(), "u1", "Ada", "", "")

	if err := s.ForceFlush(); err == nil {
		t.Fatal("expected save error")
	}

	fake.mu.Lock()
	fake.saveErr = nil
	fake.mu.Unlock()

	n := "recovered"
	s.Update(a.ID, Patch{Note: &n})
	if err := s.ForceFlush(); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if fake.saveCount() != 1 {
		t.Errorf("expected one successful write, got %d", fake.saveCount())
	}
}
