package render

import (
	"bytes"
	"fmt"

	"github.com/AkutaZehy/Annoti/internal/domtree"
	"github.com/yuin/goldmark"
)

// Markdown renders Markdown source to HTML with goldmark and parses the
// result into a document tree.
func Markdown(src []byte) (*domtree.Node, error) {
	md := goldmark.New()
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	tree, err := domtree.Parse(&buf)
	if err != nil {
		return nil, fmt.Errorf("parse rendered markdown: %w", err)
	}
	return tree, nil
}
