package anchor

import (
	"fmt"
	"strings"

	"github.com/AkutaZehy/Annoti/internal/domtree"
)

// PathOf computes the container path of an element: segments from root to
// element, joined by " > ". An element with a stable id contributes a
// "tag#id" segment and stops the ascent; an element with a class
// contributes "tag.class" and keeps ascending (classes are not assumed
// unique); anything else falls back to "tag:nth-of-type(k)". The tree
// root itself is excluded, so identical structural subtrees always yield
// identical paths.
func PathOf(el *domtree.Node) string {
	var segs []string
	for el != nil && el.Parent != nil {
		if id := el.ID(); id != "" {
			segs = append(segs, el.Tag+"#"+id)
			break
		}
		if classes := el.Classes(); len(classes) > 0 {
			segs = append(segs, el.Tag+"."+classes[0])
			el = el.Parent
			continue
		}
		segs = append(segs, fmt.Sprintf("%s:nth-of-type(%d)", el.Tag, nthOfType(el)))
		el = el.Parent
	}
	// Reverse into root-to-leaf order.
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, " > ")
}

// nthOfType returns 1 + the count of earlier same-tag element siblings.
func nthOfType(el *domtree.Node) int {
	k := 1
	for _, sib := range el.Parent.Children {
		if sib == el {
			break
		}
		if sib.IsElement() && sib.Tag == el.Tag {
			k++
		}
	}
	return k
}

// Resolve finds the first element in the fresh tree matching path, or
// ErrContainerNotFound. Class segments may match several elements, so
// resolution is a depth-first search over candidates.
func Resolve(root *domtree.Node, path string) (*domtree.Node, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrContainerNotFound)
	}
	segs := strings.Split(path, " > ")

	// An id segment is always first: it anchors the search anywhere in the
	// tree instead of at the root's children.
	if tag, id, ok := splitIDSegment(segs[0]); ok {
		var found *domtree.Node
		root.Walk(func(n *domtree.Node) bool {
			if n.IsElement() && n.Tag == tag && n.ID() == id {
				found = n
				return false
			}
			return true
		})
		if found == nil {
			return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, path)
		}
		if el := matchFrom(found, segs[1:]); el != nil {
			return el, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, path)
	}

	if el := matchFrom(root, segs); el != nil {
		return el, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, path)
}

// matchFrom matches the remaining segments against consecutive child
// elements of parent, returning the first full match in document order.
func matchFrom(parent *domtree.Node, segs []string) *domtree.Node {
	if len(segs) == 0 {
		return parent
	}
	for _, c := range parent.Children {
		if !c.IsElement() || !matchSegment(c, segs[0]) {
			continue
		}
		if el := matchFrom(c, segs[1:]); el != nil {
			return el
		}
	}
	return nil
}

func matchSegment(el *domtree.Node, seg string) bool {
	if tag, id, ok := splitIDSegment(seg); ok {
		return el.Tag == tag && el.ID() == id
	}
	if i := strings.Index(seg, ":nth-of-type("); i >= 0 {
		tag := seg[:i]
		var k int
		if _, err := fmt.Sscanf(seg[i:], ":nth-of-type(%d)", &k); err != nil {
			return false
		}
		return el.Tag == tag && nthOfType(el) == k
	}
	if i := strings.IndexByte(seg, '.'); i >= 0 {
		return el.Tag == seg[:i] && el.HasClass(seg[i+1:])
	}
	return el.Tag == seg
}

func splitIDSegment(seg string) (tag, id string, ok bool) {
	i := strings.IndexByte(seg, '#')
	if i < 0 {
		return "", "", false
	}
	return seg[:i], seg[i+1:], true
}
