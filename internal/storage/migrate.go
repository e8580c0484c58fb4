package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AkutaZehy/Annoti/internal/annotation"
	"github.com/google/uuid"
)

// MigrationReport summarizes one sidecar migration pass.
type MigrationReport struct {
	Migrated int `json:"migrated"`
	Errors   int `json:"errors"`
}

// MigrateSidecars imports legacy ".ann" sidecar files from baseDir into
// the database. Each sidecar sits next to its document ("notes.md.ann"
// belongs to "notes.md"). Imported annotations get fresh ids and the
// migration user; the sidecar is renamed to "<name>.ann.backup.migrated"
// so a re-run skips it. A bad sidecar is counted and skipped, never
// fatal.
func (s *Store) MigrateSidecars(baseDir string) (MigrationReport, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("reading %s: %w", baseDir, err)
	}

	user, err := s.GetOrCreateUser("migrated")
	if err != nil {
		return MigrationReport{}, err
	}

	var report MigrationReport
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".ann") {
			continue
		}
		annPath := filepath.Join(baseDir, entry.Name())
		docPath := strings.TrimSuffix(annPath, ".ann")

		raw, err := os.ReadFile(annPath)
		if err != nil {
			report.Errors++
			continue
		}
		anns, err := decodeSidecar(raw)
		if err != nil {
			s.log.Warn("skipping unreadable sidecar", "path", annPath, "error", err)
			report.Errors++
			continue
		}

		doc, err := s.GetDocumentByPath(docPath)
		if err != nil {
			return report, err
		}
		if doc == nil {
			content, err := os.ReadFile(docPath)
			if err != nil {
				report.Errors++
				continue
			}
			doc, err = s.SaveDocument(docPath, string(content))
			if err != nil {
				return report, err
			}
		}

		now := time.Now().UnixMilli()
		for _, a := range anns {
			a.ID = uuid.NewString()
			a.AuthorID = user.ID
			a.AuthorName = user.Name
			if a.HighlightColor == "" {
				a.HighlightColor = annotation.DefaultHighlightColor
			}
			if a.HighlightType == "" {
				a.HighlightType = annotation.DefaultHighlightType
			}
			if a.CreatedAt == 0 {
				a.CreatedAt = now
			}
			a.UpdatedAt = now
		}

		existing, err := s.LoadAnnotations(doc.ID)
		if err != nil && err != annotation.ErrNotFound {
			report.Errors++
			continue
		}
		if err := s.SaveAnnotations(doc.ID, append(existing, anns...)); err != nil {
			report.Errors++
			continue
		}
		report.Migrated += len(anns)

		// Rename, never delete: the original survives as a backup.
		if err := os.Rename(annPath, annPath+".backup.migrated"); err != nil {
			s.log.Warn("leaving migrated sidecar in place", "path", annPath, "error", err)
		}
	}

	s.log.Info("sidecar migration complete",
		"migrated", report.Migrated, "errors", report.Errors)
	return report, nil
}

// decodeSidecar accepts either a bare JSON array of annotations or a
// full export package. An entry without anchors marks the whole sidecar
// bad; a persisted anchorless row would poison the document's next load.
func decodeSidecar(raw []byte) ([]*annotation.Annotation, error) {
	var anns []*annotation.Annotation
	if err := json.Unmarshal(raw, &anns); err == nil {
		for i, a := range anns {
			if a == nil || len(a.Anchors) == 0 {
				return nil, fmt.Errorf("sidecar annotation %d has no anchors", i)
			}
		}
		return anns, nil
	}
	pkg, err := annotation.ParsePackage(raw)
	if err != nil {
		return nil, err
	}
	return pkg.Annotations, nil
}
