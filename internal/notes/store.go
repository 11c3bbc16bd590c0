// Package notes persists the agent's long-term and contextual notes.
//
// The store is a flat key→text mapping in SQLite: the root key holds the
// global long-term note, every other key is a directory path holding the
// contextual note for that directory. Writes overwrite the whole blob.
package notes

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"aide/internal/logging"
)

// GlobalKey is the key holding the long-term note.
const GlobalKey = "/"

// Store is a key→text note store backed by SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open initializes the note database at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create note directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open note database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.NotesDebug("Failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.NotesDebug("Failed to set journal_mode=WAL: %v", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS notes (
		key TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize note schema: %w", err)
	}

	logging.Notes("Note store opened at %s", path)
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeKey cleans a path key so "/a/b/" and "/a/b" address the same note.
func normalizeKey(key string) string {
	if key == "" {
		return GlobalKey
	}
	return filepath.Clean(key)
}

// Read returns the note for a key, or "" if none exists.
func (s *Store) Read(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var content string
	err := s.db.QueryRow("SELECT content FROM notes WHERE key = ?", normalizeKey(key)).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read note %q: %w", key, err)
	}
	return content, nil
}

// Write stores the note for a key, replacing any previous content.
// Writing an empty string removes the note.
func (s *Store) Write(key, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = normalizeKey(key)
	if content == "" {
		if _, err := s.db.Exec("DELETE FROM notes WHERE key = ?", key); err != nil {
			return fmt.Errorf("failed to clear note %q: %w", key, err)
		}
		logging.NotesDebug("Cleared note %q", key)
		return nil
	}

	_, err := s.db.Exec(
		`INSERT INTO notes (key, content, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		key, content)
	if err != nil {
		return fmt.Errorf("failed to write note %q: %w", key, err)
	}
	logging.NotesDebug("Wrote note %q (%d bytes)", key, len(content))
	return nil
}

// ReadGlobal returns the long-term note.
func (s *Store) ReadGlobal() (string, error) {
	return s.Read(GlobalKey)
}

// WriteGlobal stores the long-term note.
func (s *Store) WriteGlobal(content string) error {
	return s.Write(GlobalKey, content)
}

// Keys lists every key with a stored note, sorted.
func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT key FROM notes ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
