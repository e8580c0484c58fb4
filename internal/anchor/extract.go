package anchor

import "github.com/AkutaZehy/Annoti/internal/domtree"

// Position is one end of a selection: a rune offset inside a text leaf.
type Position struct {
	Leaf   *domtree.Node
	Offset int
}

// Selection is a user selection over the live tree, possibly spanning
// many rendered nodes. Start and End are in reading order.
type Selection struct {
	Start Position
	End   Position
}

// Collapsed reports whether the selection contains no characters.
func (s Selection) Collapsed() bool {
	return s.Start.Leaf == nil || s.End.Leaf == nil ||
		(s.Start.Leaf == s.End.Leaf && s.Start.Offset >= s.End.Offset)
}

// Text returns the selected text, concatenating the covered runs of every
// eligible leaf in document order.
func (s Selection) Text() string {
	var out []rune
	for _, leaf := range s.leaves() {
		runes := []rune(leaf.Text)
		start, end := s.spanIn(leaf, len(runes))
		out = append(out, runes[start:end]...)
	}
	return string(out)
}

// Extract turns a selection into an ordered list of anchors, one per
// eligible text leaf, in document order. A collapsed selection or one
// touching no eligible leaf yields nil.
func Extract(sel Selection) []Anchor {
	if sel.Collapsed() {
		return nil
	}

	var anchors []Anchor
	for _, leaf := range sel.leaves() {
		parent := leaf.Parent
		if parent == nil {
			continue
		}
		start, end := sel.spanIn(leaf, leaf.Length())
		if start >= end {
			continue
		}
		anchors = append(anchors, Anchor{
			ContainerPath: PathOf(parent),
			LeafOrdinal:   leaf.LeafOrdinal(),
			StartOffset:   start,
			EndOffset:     end,
		})
	}
	return anchors
}

// spanIn returns the covered [start, end) run of a leaf: the selection's
// own offsets at its boundary leaves, the full leaf in between.
func (s Selection) spanIn(leaf *domtree.Node, length int) (int, int) {
	start, end := 0, length
	if leaf == s.Start.Leaf {
		start = clamp(s.Start.Offset, 0, length)
	}
	if leaf == s.End.Leaf {
		end = clamp(s.End.Offset, 0, length)
	}
	return start, end
}

// leaves enumerates the non-whitespace text leaves the selection
// intersects, in document order, via a pre-order walk from the common
// ancestor.
func (s Selection) leaves() []*domtree.Node {
	ca := commonAncestor(s.Start.Leaf, s.End.Leaf)
	if ca == nil {
		return nil
	}

	var leaves []*domtree.Node
	inRange := false
	ca.Walk(func(n *domtree.Node) bool {
		if n == s.Start.Leaf {
			inRange = true
		}
		if inRange && n.IsText() && !n.IsWhitespace() {
			leaves = append(leaves, n)
		}
		return n != s.End.Leaf
	})
	if !inRange {
		// End encountered before Start: not a reading-order selection.
		return nil
	}
	return leaves
}

// commonAncestor returns the deepest node containing both leaves.
func commonAncestor(a, b *domtree.Node) *domtree.Node {
	if a == nil || b == nil {
		return nil
	}
	seen := map[*domtree.Node]bool{}
	for n := a; n != nil; n = n.Parent {
		seen[n] = true
	}
	for n := b; n != nil; n = n.Parent {
		if seen[n] {
			return n
		}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
