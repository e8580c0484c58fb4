// Package anchor captures text selections as serializable anchors and
// resolves them back against a freshly rendered tree. An anchor survives
// the tree being destroyed and rebuilt because it addresses a leaf by its
// container's structural path and the leaf's ordinal, never by node
// identity.
package anchor

import "errors"

// Per-fragment resolution failures. All three are non-fatal: one failed
// fragment downgrades a restoration, it never aborts the pass.
var (
	ErrContainerNotFound = errors.New("container not found")
	ErrLeafNotFound      = errors.New("leaf not found")
	ErrDegenerateRange   = errors.New("degenerate range")
)

// Anchor locates one contiguous character run inside a single text leaf.
// Offsets are rune offsets; EndOffset is exclusive.
type Anchor struct {
	ContainerPath string `json:"containerPath"`
	LeafOrdinal   int    `json:"leafOrdinal"`
	StartOffset   int    `json:"startOffset"`
	EndOffset     int    `json:"endOffset"`
}
