package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AkutaZehy/Annoti/internal/annotation"
)

// LoadAnnotations returns the persisted collection for a document in
// creation order. A row whose anchor payload cannot be decoded poisons
// the whole collection: the caller quarantines it rather than restoring
// half the highlights.
func (s *Store) LoadAnnotations(documentID string) ([]*annotation.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, user_id, user_name, text, note, note_visible,
			note_position_x, note_position_y, note_width, note_height,
			highlight_color, highlight_type, anchor_data, created_at, updated_at
		FROM annotations WHERE document_id = ? ORDER BY created_at, id`,
		documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anns []*annotation.Annotation
	for rows.Next() {
		var a annotation.Annotation
		var note sql.NullString
		var visible int
		var anchorData string

		if err := rows.Scan(
			&a.ID, &a.AuthorID, &a.AuthorName, &a.SourceText, &note, &visible,
			&a.NotePosition.X, &a.NotePosition.Y, &a.NoteSize.Width, &a.NoteSize.Height,
			&a.HighlightColor, &a.HighlightType, &anchorData, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		a.Note = note.String
		a.NoteVisible = visible != 0

		if err := json.Unmarshal([]byte(anchorData), &a.Anchors); err != nil {
			return nil, &annotation.CorruptDataError{
				DocumentID: documentID,
				Reason:     fmt.Sprintf("annotation %s: bad anchor data: %v", a.ID, err),
			}
		}
		if len(a.Anchors) == 0 {
			return nil, &annotation.CorruptDataError{
				DocumentID: documentID,
				Reason:     fmt.Sprintf("annotation %s: empty anchor list", a.ID),
			}
		}
		anns = append(anns, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(anns) == 0 {
		return nil, annotation.ErrNotFound
	}
	return anns, nil
}

// SaveAnnotations replaces the document's persisted collection in one
// transaction.
func (s *Store) SaveAnnotations(documentID string, anns []*annotation.Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM annotations WHERE document_id = ?`, documentID); err != nil {
		return err
	}
	for _, a := range anns {
		anchorData, err := json.Marshal(a.Anchors)
		if err != nil {
			return fmt.Errorf("encoding anchors for %s: %w", a.ID, err)
		}
		_, err = tx.Exec(`
			INSERT INTO annotations (id, document_id, user_id, user_name, text, note,
				note_visible, note_position_x, note_position_y, note_width, note_height,
				highlight_color, highlight_type, anchor_data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, documentID, a.AuthorID, a.AuthorName, a.SourceText, a.Note,
			boolToInt(a.NoteVisible), a.NotePosition.X, a.NotePosition.Y,
			a.NoteSize.Width, a.NoteSize.Height,
			a.HighlightColor, a.HighlightType, string(anchorData), a.CreatedAt, a.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// QuarantineAnnotations dumps whatever raw rows the document has to a
// timestamped JSON backup in the data directory and deletes them, so the
// document opens clean. Returns the backup path.
func (s *Store) QuarantineAnnotations(documentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, user_id, user_name, text, note, anchor_data, created_at, updated_at
		FROM annotations WHERE document_id = ?`, documentID)
	if err != nil {
		return "", err
	}

	type rawRow struct {
		ID         string `json:"id"`
		UserID     string `json:"userId"`
		UserName   string `json:"userName"`
		Text       string `json:"text"`
		Note       string `json:"note"`
		AnchorData string `json:"anchorData"`
		CreatedAt  int64  `json:"createdAt"`
		UpdatedAt  int64  `json:"updatedAt"`
	}
	var raws []rawRow
	for rows.Next() {
		var r rawRow
		var note sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &r.UserName, &r.Text, &note,
			&r.AnchorData, &r.CreatedAt, &r.UpdatedAt); err != nil {
			rows.Close()
			return "", err
		}
		r.Note = note.String
		raws = append(raws, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", err
	}

	dir := s.dataDir
	if dir == ":memory:" {
		dir = os.TempDir()
	}
	backup := filepath.Join(dir,
		fmt.Sprintf("annotations-%s-%d.quarantine.json", documentID, time.Now().UnixMilli()))
	data, err := json.MarshalIndent(raws, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return "", err
	}

	if _, err := s.db.Exec(`DELETE FROM annotations WHERE document_id = ?`, documentID); err != nil {
		return backup, err
	}
	s.log.Warn("quarantined annotations", "document_id", documentID, "rows", len(raws), "backup", backup)
	return backup, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ annotation.Storage = (*Store)(nil)
