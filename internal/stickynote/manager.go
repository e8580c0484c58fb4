// Package stickynote owns the transient view state of sticky notes:
// waking a note at the pointer, dragging, resizing, stacking. Geometry
// changes are written back to the annotation store, where the debounced
// flush persists them.
package stickynote

import (
	"log/slog"
	"sync"

	"github.com/AkutaZehy/Annoti/internal/annotation"
)

const (
	// WakeOffsetX and WakeOffsetY push a woken note away from the pointer
	// so it does not occlude the clicked highlight.
	WakeOffsetX = 12.0
	WakeOffsetY = 12.0
	// MaxRightFraction keeps x + width inside this fraction of the
	// viewport when waking.
	MaxRightFraction = 0.95
	// Resize floor and viewport-relative ceiling.
	MinNoteWidth    = 120.0
	MinNoteHeight   = 80.0
	MaxNoteFraction = 0.8
)

// Viewport describes the scroll container the notes overlay: its top-left
// in viewport coordinates, its scroll offset, and its size.
type Viewport struct {
	Origin annotation.Point
	Scroll annotation.Point
	Width  float64
	Height float64
}

// grab records where a drag or resize started: the pointer position and
// the note geometry at that moment. Moves recompute from here, never
// cumulatively, so lost pointer events cannot make the note creep.
type grab struct {
	pointer annotation.Point
	baseX   float64
	baseY   float64
}

// Manager tracks sticky note view state for one open document.
type Manager struct {
	mu    sync.Mutex
	store *annotation.Store
	log   *slog.Logger
	vp    Viewport

	zTop    int
	zIndex  map[string]int
	drags   map[string]grab
	resizes map[string]grab
}

// NewManager creates a sticky note manager over the document's store.
func NewManager(store *annotation.Store, vp Viewport, log *slog.Logger) *Manager {
	return &Manager{
		store:   store,
		log:     log,
		vp:      vp,
		zIndex:  make(map[string]int),
		drags:   make(map[string]grab),
		resizes: make(map[string]grab),
	}
}

// SetViewport updates the scroll container metrics (resize, scroll).
func (m *Manager) SetViewport(vp Viewport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vp = vp
}

// Wake shows the note for a marker activation. Pointer coordinates are
// viewport coordinates; the note lands in content coordinates, offset
// from the pointer and clamped so it stays inside the viewport
// horizontally. Returns the final position.
func (m *Manager) Wake(groupID string, x, y float64) (annotation.Point, bool) {
	a := m.store.Get(groupID)
	if a == nil {
		m.log.Warn("wake for unknown annotation", "group_id", groupID)
		return annotation.Point{}, false
	}

	m.mu.Lock()
	vp := m.vp
	m.mu.Unlock()

	pos := annotation.Point{
		X: x - vp.Origin.X + vp.Scroll.X + WakeOffsetX,
		Y: y - vp.Origin.Y + vp.Scroll.Y + WakeOffsetY,
	}
	if maxX := vp.Width*MaxRightFraction - a.NoteSize.Width; pos.X > maxX {
		pos.X = maxX
	}
	if pos.X < 0 {
		pos.X = 0
	}

	visible := true
	m.store.Update(groupID, annotation.Patch{NotePosition: &pos, NoteVisible: &visible})
	m.BringToTop(groupID)
	return pos, true
}

// BeginDrag records the drag origin. Reports whether the note exists.
func (m *Manager) BeginDrag(id string, pointerX, pointerY float64) bool {
	a := m.store.Get(id)
	if a == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drags[id] = grab{
		pointer: annotation.Point{X: pointerX, Y: pointerY},
		baseX:   a.NotePosition.X,
		baseY:   a.NotePosition.Y,
	}
	return true
}

// Drag recomputes the absolute position from the pointer delta since
// drag-start. Horizontal movement clamps to the overlay; vertical stays
// unclamped because the overlay scrolls.
func (m *Manager) Drag(id string, pointerX, pointerY float64) (annotation.Point, bool) {
	a := m.store.Get(id)
	if a == nil {
		return annotation.Point{}, false
	}
	m.mu.Lock()
	g, ok := m.drags[id]
	vp := m.vp
	m.mu.Unlock()
	if !ok {
		return annotation.Point{}, false
	}

	pos := annotation.Point{
		X: g.baseX + (pointerX - g.pointer.X),
		Y: g.baseY + (pointerY - g.pointer.Y),
	}
	if maxX := vp.Width - a.NoteSize.Width; pos.X > maxX {
		pos.X = maxX
	}
	if pos.X < 0 {
		pos.X = 0
	}

	m.store.Update(id, annotation.Patch{NotePosition: &pos})
	return pos, true
}

// EndDrag drops the drag origin.
func (m *Manager) EndDrag(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drags, id)
}

// BeginResize records the resize origin.
func (m *Manager) BeginResize(id string, pointerX, pointerY float64) bool {
	a := m.store.Get(id)
	if a == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resizes[id] = grab{
		pointer: annotation.Point{X: pointerX, Y: pointerY},
		baseX:   a.NoteSize.Width,
		baseY:   a.NoteSize.Height,
	}
	return true
}

// Resize grows the note from the pointer delta since resize-start,
// bounded by the minimum floor and the viewport-relative ceiling.
func (m *Manager) Resize(id string, pointerX, pointerY float64) (annotation.Size, bool) {
	m.mu.Lock()
	g, ok := m.resizes[id]
	vp := m.vp
	m.mu.Unlock()
	if !ok {
		return annotation.Size{}, false
	}

	size := annotation.Size{
		Width:  g.baseX + (pointerX - g.pointer.X),
		Height: g.baseY + (pointerY - g.pointer.Y),
	}
	size.Width = bound(size.Width, MinNoteWidth, vp.Width*MaxNoteFraction)
	size.Height = bound(size.Height, MinNoteHeight, vp.Height*MaxNoteFraction)

	if !m.store.Update(id, annotation.Patch{NoteSize: &size}) {
		return annotation.Size{}, false
	}
	return size, true
}

// EndResize drops the resize origin.
func (m *Manager) EndResize(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.resizes, id)
}

// BringToTop bumps the note above every other note by advancing a shared
// monotonic layer counter — no re-sort of the others. Returns the new
// layer.
func (m *Manager) BringToTop(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zTop++
	m.zIndex[id] = m.zTop
	return m.zTop
}

// ZIndex returns the note's current layer (0 if never raised).
func (m *Manager) ZIndex(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.zIndex[id]
}

// Hide hides the note without touching its geometry.
func (m *Manager) Hide(id string) bool {
	visible := false
	return m.store.Update(id, annotation.Patch{NoteVisible: &visible})
}

func bound(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if hi > lo && v > hi {
		return hi
	}
	return v
}
