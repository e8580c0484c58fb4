package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PackageVersion is the current export package format version.
const PackageVersion = "1.0"

// ErrUnsupportedVersion rejects packages from an unknown format version.
var ErrUnsupportedVersion = errors.New("unsupported package version")

// SourceDocument identifies the document a package was exported from.
type SourceDocument struct {
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
}

// Package is the annotation interchange format.
type Package struct {
	Version        string          `json:"version"`
	ExportedAt     int64           `json:"exportedAt"`
	SourceDocument *SourceDocument `json:"sourceDocument,omitempty"`
	Annotations    []*Annotation   `json:"annotations"`
}

// BuildPackage wraps annotations for export.
func BuildPackage(src *SourceDocument, anns []*Annotation) *Package {
	return &Package{
		Version:        PackageVersion,
		ExportedAt:     time.Now().UnixMilli(),
		SourceDocument: src,
		Annotations:    anns,
	}
}

// legacyPackage is the old single-annotation export format, still
// accepted on import.
type legacyPackage struct {
	Version    string      `json:"version"`
	ExportedAt int64       `json:"exportedAt"`
	Annotation *Annotation `json:"annotation"`
}

// ParsePackage decodes a batch package, falling back to the legacy
// single-annotation format.
func ParsePackage(data []byte) (*Package, error) {
	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse package: %w", err)
	}
	if pkg.Annotations == nil {
		var legacy legacyPackage
		if err := json.Unmarshal(data, &legacy); err != nil || legacy.Annotation == nil {
			return nil, fmt.Errorf("parse package: no annotations")
		}
		pkg = Package{
			Version:     legacy.Version,
			ExportedAt:  legacy.ExportedAt,
			Annotations: []*Annotation{legacy.Annotation},
		}
	}
	if pkg.Version != PackageVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, pkg.Version)
	}
	// An annotation without anchors can never be restored; letting it
	// through would poison the document's next load.
	for i, a := range pkg.Annotations {
		if a == nil || len(a.Anchors) == 0 {
			return nil, fmt.Errorf("parse package: annotation %d has no anchors", i)
		}
	}
	return &pkg, nil
}
