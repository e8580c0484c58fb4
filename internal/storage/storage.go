// Package storage provides SQLite-backed persistence for users, documents,
// and annotations. Uses ncruces/go-sqlite3/driver which provides a
// database/sql interface.
package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at INTEGER
);

CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    path TEXT UNIQUE NOT NULL,
    content TEXT NOT NULL,
    checksum TEXT NOT NULL,
    last_modified INTEGER,
    created_at INTEGER
);

CREATE TABLE IF NOT EXISTS annotations (
    id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    user_name TEXT NOT NULL,
    text TEXT NOT NULL,
    note TEXT,
    note_visible INTEGER DEFAULT 0,
    note_position_x REAL DEFAULT 0,
    note_position_y REAL DEFAULT 0,
    note_width REAL DEFAULT 280,
    note_height REAL DEFAULT 180,
    highlight_color TEXT DEFAULT '#ffd700',
    highlight_type TEXT DEFAULT 'underline',
    anchor_data TEXT NOT NULL,
    created_at INTEGER,
    updated_at INTEGER,
    FOREIGN KEY (document_id) REFERENCES documents(id),
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_annotations_doc ON annotations(document_id);
CREATE INDEX IF NOT EXISTS idx_annotations_user ON annotations(user_id);
`

// User is a local author identity.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

// Document is one opened file: its content snapshot and checksum at the
// last save.
type Document struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	Content      string `json:"content"`
	Checksum     string `json:"checksum"`
	LastModified int64  `json:"lastModified"`
	CreatedAt    int64  `json:"createdAt"`
}

// Store is the SQLite-backed data store. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	db      *sql.DB
	dataDir string
	log     *slog.Logger
}

// Open opens (or creates) the database under dataDir and applies the
// schema. Use ":memory:" as dataDir for an in-memory store in tests.
func Open(dataDir string, log *slog.Logger) (*Store, error) {
	dsn := ":memory:"
	if dataDir != ":memory:" {
		dsn = "file:" + filepath.Join(dataDir, "annoti.db")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dataDir == ":memory:" {
		// Each pooled connection would get its own memory database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db, dataDir: dataDir, log: log}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Checksum returns the hex SHA-256 of the content.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// GetOrCreateUser returns the single local user, creating it with the
// given name when the table is empty.
func (s *Store) GetOrCreateUser(name string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var u User
	err := s.db.QueryRow(`SELECT id, name, created_at FROM users LIMIT 1`).
		Scan(&u.ID, &u.Name, &u.CreatedAt)
	if err == nil {
		return &u, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	u = User{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UnixMilli()}
	_, err = s.db.Exec(`INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)`,
		u.ID, u.Name, u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserName renames the user. Annotations keep the name they were
// created with.
func (s *Store) UpdateUserName(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE users SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s not found", id)
	}
	return nil
}

// SaveDocument upserts the document identified by its path, refreshing
// the content snapshot and checksum. Returns the stored document.
func (s *Store) SaveDocument(path, content string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	sum := Checksum(content)

	var id string
	err := s.db.QueryRow(`SELECT id FROM documents WHERE path = ?`, path).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		id = uuid.NewString()
		_, err = s.db.Exec(`
			INSERT INTO documents (id, path, content, checksum, last_modified, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, path, content, sum, now, now)
	case err == nil:
		_, err = s.db.Exec(`
			UPDATE documents SET content = ?, checksum = ?, last_modified = ?
			WHERE id = ?`,
			content, sum, now, id)
	}
	if err != nil {
		return nil, err
	}
	return s.getDocumentLocked(`id`, id)
}

// GetDocumentByPath returns the document, or nil when unknown.
func (s *Store) GetDocumentByPath(path string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getDocumentLocked(`path`, path)
}

// GetDocument returns the document by id, or nil when unknown.
func (s *Store) GetDocument(id string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getDocumentLocked(`id`, id)
}

func (s *Store) getDocumentLocked(column, key string) (*Document, error) {
	var d Document
	err := s.db.QueryRow(`
		SELECT id, path, content, checksum, last_modified, created_at
		FROM documents WHERE `+column+` = ?`, key).
		Scan(&d.ID, &d.Path, &d.Content, &d.Checksum, &d.LastModified, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteDocument removes the document and its annotations.
func (s *Store) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM annotations WHERE document_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListDocuments returns every stored document, most recently modified
// first, without the content snapshots.
func (s *Store) ListDocuments() ([]*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, path, checksum, last_modified, created_at
		FROM documents ORDER BY last_modified DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Path, &d.Checksum, &d.LastModified, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}
