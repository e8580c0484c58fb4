package annotation

import (
	"time"

	"github.com/google/uuid"
)

// MergeResult reports an import merge.
type MergeResult struct {
	Accepted       []*Annotation
	DuplicateCount int
	RejectedCount  int
}

// Merge folds imported annotations into the open document. De-duplication
// is exact SourceText equality within the document — conservative, no
// fuzzy matching. Accepted entries get fresh ids and timestamps; anchors
// pass through unchanged, restoration covers structural drift in the
// target document. An entry without anchors is rejected: it could never
// be restored, and persisting it would poison the next load.
func (s *Store) Merge(incoming []*Annotation) MergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.anns))
	for _, a := range s.anns {
		seen[a.SourceText] = true
	}

	now := time.Now().UnixMilli()
	var result MergeResult
	for _, in := range incoming {
		if in == nil || len(in.Anchors) == 0 {
			result.RejectedCount++
			s.log.Warn("rejecting imported annotation without anchors",
				"document_id", s.docID)
			continue
		}
		if seen[in.SourceText] {
			result.DuplicateCount++
			continue
		}
		seen[in.SourceText] = true

		a := in.Clone()
		a.ID = uuid.NewString()
		a.CreatedAt = now
		a.UpdatedAt = now
		s.anns = append(s.anns, a)
		result.Accepted = append(result.Accepted, a.Clone())
	}
	if len(result.Accepted) > 0 {
		s.scheduleFlushLocked()
	}
	return result
}
