package session

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/AkutaZehy/Annoti/internal/anchor"
	"github.com/AkutaZehy/Annoti/internal/annotation"
	"github.com/AkutaZehy/Annoti/internal/domtree"
	"github.com/AkutaZehy/Annoti/internal/export"
	"github.com/AkutaZehy/Annoti/internal/stickynote"
	"github.com/AkutaZehy/Annoti/internal/storage"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	st, err := storage.Open(t.TempDir(), discard())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewManager(st, time.Hour, 0, discard())
}

func testViewport() stickynote.Viewport {
	return stickynote.Viewport{Width: 1200, Height: 800}
}

const doc = "# Title\n\nhello world again\n"

// firstParagraph finds the first p element in the rendered tree.
func firstParagraph(t *testing.T, s *Session) *domtree.Node {
	t.Helper()
	var para *domtree.Node
	s.Root.Walk(func(n *domtree.Node) bool {
		if n.IsElement() && n.Tag == "p" {
			para = n
			return false
		}
		return true
	})
	if para == nil {
		t.Fatal("no paragraph in rendered tree")
	}
	return para
}

// selectWorld builds a selection over "world" in the first paragraph.
func selectWorld(t *testing.T, s *Session) anchor.Selection {
	t.Helper()
	leaf := firstParagraph(t, s).TextLeafAt(0)
	if leaf == nil {
		t.Fatal("paragraph has no text leaf")
	}
	return anchor.Selection{
		Start: anchor.Position{Leaf: leaf, Offset: 6},
		End:   anchor.Position{Leaf: leaf, Offset: 11},
	}
}

func TestOpenAnnotateReopen(t *testing.T) {
	m := newTestManager(t)

	s, err := m.Open("/docs/notes.md", doc, testViewport())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Load.Count != 0 || s.Restored.Failed != 0 {
		t.Fatalf("fresh document must open clean: %+v %+v", s.Load, s.Restored)
	}

	a, err := s.Annotate(selectWorld(t, s), "u1", "Ada", "", "")
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if a.SourceText != "world" {
		t.Errorf("captured %q", a.SourceText)
	}
	if got := s.Markers.Markers(a.ID); len(got) != 1 || got[0].TextContent() != "world" {
		t.Fatalf("marker not on the live tree: %+v", got)
	}
	if err := s.Store.ForceFlush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	// Reopen: a fresh render plus restoration must reproduce the marker.
	s2, err := m.Open("/docs/notes.md", doc, testViewport())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if s2.Load.Count != 1 || s2.Restored.Restored != 1 {
		t.Fatalf("expected one restored annotation, got %+v %+v", s2.Load, s2.Restored)
	}
	if got := s2.Markers.Markers(a.ID); len(got) != 1 || got[0].TextContent() != "world" {
		t.Errorf("restored marker wrong: %+v", got)
	}
}

func TestAnnotate_CollapsedSelection(t *testing.T) {
	m := newTestManager(t)
	s, _ := m.Open("/docs/notes.md", doc, testViewport())

	leaf := firstParagraph(t, s).TextLeafAt(0)
	sel := anchor.Selection{
		Start: anchor.Position{Leaf: leaf, Offset: 3},
		End:   anchor.Position{Leaf: leaf, Offset: 3},
	}
	if _, err := s.Annotate(sel, "u1", "Ada", "", ""); err != ErrCollapsedSelection {
		t.Errorf("expected ErrCollapsedSelection, got %v", err)
	}
}

func TestDelete_RemovesMarkerAndRow(t *testing.T) {
	m := newTestManager(t)
	s, _ := m.Open("/docs/notes.md", doc, testViewport())
	a, _ := s.Annotate(selectWorld(t, s), "u1", "Ada", "", "")

	if removed := s.Delete(a.ID); removed == nil {
		t.Fatal("delete returned nil")
	}
	if len(s.Markers.Markers(a.ID)) != 0 {
		t.Error("marker fragments survive deletion")
	}
	if s.Store.Get(a.ID) != nil {
		t.Error("annotation survives deletion")
	}
	if !strings.Contains(s.HTML(), "hello world again") {
		t.Error("unwrap must restore the original text")
	}
}

func TestImport_MergesAndWraps(t *testing.T) {
	m := newTestManager(t)
	s, _ := m.Open("/docs/notes.md", doc, testViewport())
	a, _ := s.Annotate(selectWorld(t, s), "u1", "Ada", "", "")

	pkg := s.ExportPackage()
	data, _ := json.Marshal(pkg)

	// Importing our own export is all duplicates.
	result, err := s.Import(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(result.Accepted) != 0 || result.DuplicateCount != 1 {
		t.Fatalf("expected pure duplicates, got %+v", result)
	}

	// An incoming annotation over different text is accepted and wrapped.
	other := s.ExportPackage()
	other.Annotations[0].SourceText = "hello"
	other.Annotations[0].Anchors[0].StartOffset = 0
	other.Annotations[0].Anchors[0].EndOffset = 5
	data, _ = json.Marshal(other)
	result, err = s.Import(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(result.Accepted) != 1 {
		t.Fatalf("expected 1 accepted, got %+v", result)
	}
	if got := s.Markers.Markers(result.Accepted[0].ID); len(got) != 1 || got[0].TextContent() != "hello" {
		t.Errorf("imported annotation not wrapped: %+v", got)
	}
	_ = a
}

func TestExportHTML(t *testing.T) {
	m := newTestManager(t)
	s, _ := m.Open("/docs/notes.md", doc, testViewport())
	a, err := s.Annotate(selectWorld(t, s), "u1", "Ada", "", "")
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}

	page, err := s.ExportHTML(export.Options{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(page, "<title>notes.md</title>") {
		t.Error("title must default to the document name")
	}
	if !strings.Contains(page, `data-group-id="`+a.ID+`"`) {
		t.Error("exported page missing the highlight marker")
	}
	if !strings.Contains(page, "doc-highlight") {
		t.Error("exported page missing marker class")
	}
}

func TestMarkerActivationWakesNote(t *testing.T) {
	m := newTestManager(t)
	vp := stickynote.Viewport{
		Origin: annotation.Point{X: 20, Y: 40},
		Scroll: annotation.Point{Y: 200},
		Width:  2000,
		Height: 1200,
	}
	s, _ := m.Open("/docs/notes.md", doc, vp)
	a, _ := s.Annotate(selectWorld(t, s), "u1", "Ada", "", "")

	if !s.Markers.Activate(a.ID, 120, 340) {
		t.Fatal("activation failed for existing marker")
	}
	got := s.Store.Get(a.ID)
	if !got.NoteVisible {
		t.Error("activation must wake the note")
	}
	want := annotation.Point{X: 100 + stickynote.WakeOffsetX, Y: 500 + stickynote.WakeOffsetY}
	if got.NotePosition != want {
		t.Errorf("expected %+v, got %+v", want, got.NotePosition)
	}
}
