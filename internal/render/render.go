// Package render produces the document tree the annotation engine anchors
// into. Markdown is rendered to HTML and parsed; plain text is re-wrapped
// at a fixed display width. A document must render identically for the
// same source and settings, since anchors are resolved against the fresh
// tree on every load.
package render

import (
	"path/filepath"
	"strings"

	"github.com/AkutaZehy/Annoti/internal/domtree"
)

// Kind selects the rendering pipeline for a document.
type Kind int

const (
	KindText Kind = iota
	KindMarkdown
)

// KindForPath picks the rendering pipeline from the file extension.
func KindForPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return KindMarkdown
	}
	return KindText
}

// Document renders content into a tree using the pipeline for path.
// wrapWidth is the plain-text column width in display cells.
func Document(content, path string, wrapWidth int) (*domtree.Node, error) {
	if KindForPath(path) == KindMarkdown {
		return Markdown([]byte(content))
	}
	return Text(content, wrapWidth), nil
}
