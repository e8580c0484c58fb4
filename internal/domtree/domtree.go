// Package domtree holds the rendered document as an owned tree of element
// and text-leaf nodes. The renderer produces HTML; Parse converts it into
// this tree so that highlight mutation never touches parser state, and so
// leaves can be addressed by (container, ordinal) coordinates instead of
// raw node references.
package domtree

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// NodeType distinguishes element nodes from text leaves.
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
)

// Attr is a single element attribute. Attribute order is preserved so
// serialization is deterministic.
type Attr struct {
	Key string
	Val string
}

// Node is one node in the document tree. Element nodes have a Tag, Attrs
// and Children; text leaves have Text and nothing else.
type Node struct {
	Type     NodeType
	Tag      string
	Attrs    []Attr
	Text     string
	Parent   *Node
	Children []*Node
}

// NewElement creates a detached element node.
func NewElement(tag string, attrs ...Attr) *Node {
	return &Node{Type: ElementNode, Tag: tag, Attrs: attrs}
}

// NewText creates a detached text leaf.
func NewText(text string) *Node {
	return &Node{Type: TextNode, Text: text}
}

// Parse reads an HTML document and returns the body subtree converted to
// an owned tree. If the input has no body, the whole document is used.
func Parse(r io.Reader) (*Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	src := findBody(doc)
	if src == nil {
		src = doc
	}
	root := NewElement("body")
	for c := src.FirstChild; c != nil; c = c.NextSibling {
		convert(c, root)
	}
	return root, nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func convert(n *html.Node, parent *Node) {
	switch n.Type {
	case html.ElementNode:
		el := NewElement(n.Data)
		for _, a := range n.Attr {
			el.Attrs = append(el.Attrs, Attr{Key: a.Key, Val: a.Val})
		}
		parent.AppendChild(el)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			convert(c, el)
		}
	case html.TextNode:
		parent.AppendChild(NewText(n.Data))
	}
	// Comments and doctypes are dropped: they carry no anchorable text and
	// would shift nothing, since ordinals count text leaves only.
}

// IsElement reports whether n is an element node.
func (n *Node) IsElement() bool { return n != nil && n.Type == ElementNode }

// IsText reports whether n is a text leaf.
func (n *Node) IsText() bool { return n != nil && n.Type == TextNode }

// IsWhitespace reports whether n is a text leaf containing only whitespace.
func (n *Node) IsWhitespace() bool {
	return n.IsText() && strings.TrimSpace(n.Text) == ""
}

// Length returns the text length of a leaf in runes. Anchor offsets are
// rune offsets.
func (n *Node) Length() int {
	return utf8.RuneCountInString(n.Text)
}

// Attr returns the value of the named attribute, or "".
func (n *Node) Attr(key string) string {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets or replaces the named attribute.
func (n *Node) SetAttr(key, val string) {
	for i, a := range n.Attrs {
		if a.Key == key {
			n.Attrs[i].Val = val
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Key: key, Val: val})
}

// ID returns the element's id attribute, or "".
func (n *Node) ID() string { return n.Attr("id") }

// Classes returns the element's class tokens.
func (n *Node) Classes() []string {
	return strings.Fields(n.Attr("class"))
}

// HasClass reports whether the element carries the given class token.
func (n *Node) HasClass(class string) bool {
	for _, c := range n.Classes() {
		if c == class {
			return true
		}
	}
	return false
}

// AppendChild attaches c as the last child of n.
func (n *Node) AppendChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// ChildIndex returns the position of c among n's children, or -1.
func (n *Node) ChildIndex(c *Node) int {
	for i, ch := range n.Children {
		if ch == c {
			return i
		}
	}
	return -1
}

// ReplaceChild replaces old with the given replacement nodes, preserving
// the position of old among n's children.
func (n *Node) ReplaceChild(old *Node, repl ...*Node) {
	i := n.ChildIndex(old)
	if i < 0 {
		return
	}
	old.Parent = nil
	for _, r := range repl {
		r.Parent = n
	}
	children := make([]*Node, 0, len(n.Children)-1+len(repl))
	children = append(children, n.Children[:i]...)
	children = append(children, repl...)
	children = append(children, n.Children[i+1:]...)
	n.Children = children
}

// RemoveChild detaches c from n.
func (n *Node) RemoveChild(c *Node) {
	i := n.ChildIndex(c)
	if i < 0 {
		return
	}
	c.Parent = nil
	n.Children = append(n.Children[:i], n.Children[i+1:]...)
}

// Walk visits n and its subtree in pre-order. Returning false from fn
// aborts the whole walk. Walk reports whether the traversal ran to
// completion.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// TextContent concatenates every text leaf under n in document order.
func (n *Node) TextContent() string {
	var sb strings.Builder
	n.Walk(func(c *Node) bool {
		if c.IsText() {
			sb.WriteString(c.Text)
		}
		return true
	})
	return sb.String()
}

// TextLeafAt returns the direct child text leaf with the given ordinal.
// Element children do not count. Returns nil when the ordinal is out of
// range.
func (n *Node) TextLeafAt(ordinal int) *Node {
	if ordinal < 0 {
		return nil
	}
	seen := 0
	for _, c := range n.Children {
		if !c.IsText() {
			continue
		}
		if seen == ordinal {
			return c
		}
		seen++
	}
	return nil
}

// LeafOrdinal returns n's position among its parent's direct text-leaf
// children, or -1 when n is not an attached text leaf.
func (n *Node) LeafOrdinal() int {
	if !n.IsText() || n.Parent == nil {
		return -1
	}
	ord := 0
	for _, c := range n.Parent.Children {
		if c == n {
			return ord
		}
		if c.IsText() {
			ord++
		}
	}
	return -1
}

// MergeAdjacentTextLeaves coalesces consecutive direct child text leaves
// into single leaves, so leaf-ordinal math stays correct after markers
// are unwrapped.
func (n *Node) MergeAdjacentTextLeaves() {
	merged := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.IsText() && len(merged) > 0 && merged[len(merged)-1].IsText() {
			merged[len(merged)-1].Text += c.Text
			c.Parent = nil
			continue
		}
		merged = append(merged, c)
	}
	n.Children = merged
}

// Void elements are serialized without a closing tag.
var voidElements = map[string]bool{
	"br": true, "hr": true, "img": true, "input": true, "meta": true,
	"link": true, "area": true, "base": true, "col": true, "wbr": true,
}

// HTML serializes the subtree rooted at n. The body root itself is not
// emitted, only its contents, so the result can be embedded in a page.
func (n *Node) HTML() string {
	var sb strings.Builder
	if n.IsElement() && n.Tag == "body" && n.Parent == nil {
		for _, c := range n.Children {
			writeHTML(&sb, c)
		}
	} else {
		writeHTML(&sb, n)
	}
	return sb.String()
}

func writeHTML(sb *strings.Builder, n *Node) {
	if n.IsText() {
		sb.WriteString(html.EscapeString(n.Text))
		return
	}
	sb.WriteByte('<')
	sb.WriteString(n.Tag)
	for _, a := range n.Attrs {
		sb.WriteByte(' ')
		sb.WriteString(a.Key)
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(a.Val))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	if voidElements[n.Tag] {
		return
	}
	for _, c := range n.Children {
		writeHTML(sb, c)
	}
	sb.WriteString("</")
	sb.WriteString(n.Tag)
	sb.WriteByte('>')
}
