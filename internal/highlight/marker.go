// Package highlight renders and removes highlight markers on the live
// document tree. Every marker fragment of one annotation carries the
// annotation id as its group id, so deleting the annotation removes all
// of its fragments.
package highlight

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/AkutaZehy/Annoti/internal/anchor"
	"github.com/AkutaZehy/Annoti/internal/domtree"
)

// ErrLeafConsumed marks an anchor whose resolved leaf was already rewritten
// by an earlier fragment of the same wrap pass. Drifted container paths can
// collapse two anchors onto one leaf; the later one becomes a fragment
// failure instead of mutating a detached node.
var ErrLeafConsumed = errors.New("leaf consumed by earlier fragment")

const (
	// MarkerTag and MarkerClass match the markup the read-only HTML export
	// styles.
	MarkerTag   = "mark"
	MarkerClass = "doc-highlight"
	// GroupAttr ties a fragment to its annotation.
	GroupAttr = "data-group-id"
	// PrimaryIDPrefix forms the navigable id carried by the first fragment
	// only.
	PrimaryIDPrefix = "annotation-"
)

// WakeFunc receives marker activations: the fragment's group id plus the
// pointer coordinates of the activation.
type WakeFunc func(groupID string, x, y float64)

// FragmentFailure records one anchor that could not be wrapped.
type FragmentFailure struct {
	Index int
	Err   error
}

// Manager wraps and unwraps marker fragments on one live tree.
type Manager struct {
	root *domtree.Node
	log  *slog.Logger
	wake WakeFunc
}

// NewManager creates a marker manager for the given render pass.
func NewManager(root *domtree.Node, log *slog.Logger) *Manager {
	return &Manager{root: root, log: log}
}

// OnWake registers the handler forwarded marker activations.
func (m *Manager) OnWake(fn WakeFunc) {
	m.wake = fn
}

// span is an anchor resolved against the live tree.
type span struct {
	leaf       *domtree.Node
	start, end int
}

// Wrap replaces each anchor's character run with a marker element tagged
// with groupID. Every anchor is resolved before the first mutation, so
// leaf ordinals are always read from the pre-mutation tree. A fragment
// that fails to resolve, or whose leaf an earlier fragment already
// consumed, is logged and skipped; it never aborts the rest.
// Returns the number of fragments wrapped and the per-anchor failures.
func (m *Manager) Wrap(anchors []anchor.Anchor, groupID string) (int, []FragmentFailure) {
	spans := make([]*span, len(anchors))
	var failures []FragmentFailure
	for i, a := range anchors {
		sp, err := m.resolveSpan(a)
		if err != nil {
			m.log.Warn("wrap fragment failed",
				"group_id", groupID,
				"fragment", i,
				"path", a.ContainerPath,
				"error", err,
			)
			failures = append(failures, FragmentFailure{Index: i, Err: err})
			continue
		}
		spans[i] = sp
	}

	wrapped := 0
	for i, sp := range spans {
		if sp == nil {
			continue
		}
		if sp.leaf.Parent == nil {
			err := fmt.Errorf("%w: fragment %d", ErrLeafConsumed, i)
			m.log.Warn("wrap fragment failed",
				"group_id", groupID,
				"fragment", i,
				"path", anchors[i].ContainerPath,
				"error", err,
			)
			failures = append(failures, FragmentFailure{Index: i, Err: err})
			continue
		}
		m.wrapSpan(sp, groupID, wrapped == 0)
		wrapped++
	}
	return wrapped, failures
}

// resolveSpan turns an anchor into a live leaf span, clamping offsets
// against the current leaf length.
func (m *Manager) resolveSpan(a anchor.Anchor) (*span, error) {
	container, err := anchor.Resolve(m.root, a.ContainerPath)
	if err != nil {
		return nil, err
	}
	leaf := container.TextLeafAt(a.LeafOrdinal)
	if leaf == nil {
		return nil, fmt.Errorf("%w: ordinal %d in %s", anchor.ErrLeafNotFound, a.LeafOrdinal, a.ContainerPath)
	}
	length := leaf.Length()
	start := a.StartOffset
	if start < 0 {
		start = 0
	}
	end := a.EndOffset
	if end > length {
		end = length
	}
	if start >= end {
		return nil, fmt.Errorf("%w: [%d,%d) in leaf of length %d", anchor.ErrDegenerateRange, a.StartOffset, a.EndOffset, length)
	}
	return &span{leaf: leaf, start: start, end: end}, nil
}

// wrapSpan splits the leaf around the span and inserts the marker in
// place. The first fragment of a group carries the navigable primary id.
func (m *Manager) wrapSpan(sp *span, groupID string, primary bool) {
	parent := sp.leaf.Parent
	runes := []rune(sp.leaf.Text)

	mark := domtree.NewElement(MarkerTag,
		domtree.Attr{Key: "class", Val: MarkerClass},
		domtree.Attr{Key: GroupAttr, Val: groupID},
	)
	if primary {
		mark.SetAttr("id", PrimaryIDPrefix+groupID)
	}
	mark.AppendChild(domtree.NewText(string(runes[sp.start:sp.end])))

	var repl []*domtree.Node
	if sp.start > 0 {
		repl = append(repl, domtree.NewText(string(runes[:sp.start])))
	}
	repl = append(repl, mark)
	if sp.end < len(runes) {
		repl = append(repl, domtree.NewText(string(runes[sp.end:])))
	}
	parent.ReplaceChild(sp.leaf, repl...)
}

// Unwrap removes every marker fragment sharing groupID, restoring each
// fragment's text content, then coalesces newly adjacent text leaves so
// leaf-ordinal math stays correct for later passes.
func (m *Manager) Unwrap(groupID string) {
	markers := m.Markers(groupID)
	parents := make(map[*domtree.Node]bool)
	for _, mark := range markers {
		parent := mark.Parent
		if parent == nil {
			continue
		}
		parent.ReplaceChild(mark, domtree.NewText(mark.TextContent()))
		parents[parent] = true
	}
	for parent := range parents {
		parent.MergeAdjacentTextLeaves()
	}
}

// Markers returns the live marker fragments of a group in document order.
func (m *Manager) Markers(groupID string) []*domtree.Node {
	var markers []*domtree.Node
	m.root.Walk(func(n *domtree.Node) bool {
		if n.IsElement() && n.Tag == MarkerTag && n.Attr(GroupAttr) == groupID {
			markers = append(markers, n)
		}
		return true
	})
	return markers
}

// Activate simulates a pointer activation on a group's marker, forwarding
// a wake notification to the registered handler. Reports whether the
// group has any live fragment.
func (m *Manager) Activate(groupID string, x, y float64) bool {
	if len(m.Markers(groupID)) == 0 {
		return false
	}
	if m.wake != nil {
		m.wake(groupID, x, y)
	}
	return true
}
