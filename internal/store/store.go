// Package store persists quick notes and rebuild history in a local SQLite
// database, using the pure Go modernc.org/sqlite driver. Notes written here
// join the search corpus next to the files on disk.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	dexerrors "github.com/notedex/notedex/internal/errors"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// timeLayout is RFC 3339 with a fixed-width nanosecond fraction so stored
// timestamps sort chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// keyPattern constrains note keys: they appear in URLs and in doc IDs, so
// they stay slug-shaped.
var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// ErrNoteNotFound is returned when a note key has no row. Matching is by
// error code, so errors.Is works against wrapped instances.
var ErrNoteNotFound = dexerrors.New(dexerrors.ErrCodeNoteNotFound, "note not found", nil)

// Note is a quick personal note stored outside the markdown tree.
type Note struct {
	Key       string    `json:"key"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BuildRecord describes one completed index rebuild.
type BuildRecord struct {
	ID           string    `json:"id"`
	BuiltAt      time.Time `json:"built_at"`
	Docs         int       `json:"docs"`
	Chunks       int       `json:"chunks"`
	Terms        int       `json:"terms"`
	CapsuleBytes int       `json:"capsule_bytes"`
}

// Store is the persistence surface consumed by the engine and the HTTP API.
type Store interface {
	PutNote(ctx context.Context, key, body string, tags []string) (*Note, error)
	GetNote(ctx context.Context, key string) (*Note, error)
	ListNotes(ctx context.Context) ([]*Note, error)
	DeleteNote(ctx context.Context, key string) error
	NoteCount(ctx context.Context) (int, error)

	RecordBuild(ctx context.Context, rec *BuildRecord) error
	LastBuild(ctx context.Context) (*BuildRecord, error)
	RecentBuilds(ctx context.Context, limit int) ([]*BuildRecord, error)

	Close() error
}

// SQLiteStore implements Store on a single SQLite file.
// WAL mode allows a serving process and a CLI invocation to share the file.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Verify interface implementation at compile time
var _ Store = (*SQLiteStore)(nil)

// ValidateKey reports whether key is usable as a note key.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return dexerrors.New(dexerrors.ErrCodeInvalidKey,
			fmt.Sprintf("invalid note key %q: use letters, digits, '.', '_' or '-' (max 128)", key), nil)
	}
	return nil
}

// validateIntegrity checks if an existing database file is healthy before
// opening it for real. Returns nil if the file is absent (it will be created).
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
                       WHERE type='table' AND name='notes'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("notes table missing")
	}

	return nil
}

// backupAside moves a corrupt database out of the way so a fresh one can be
// created, keeping the old bytes for hand recovery.
func backupAside(path string) error {
	backupPath := path + ".corrupt-" + time.Now().Format("20060102-150405")
	if err := os.Rename(path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot move corrupt store aside: %w", err)
	}
	// WAL sidecars belong to the old file
	_ = os.Remove(path + "-wal")
	_ = os.Remove(path + "-shm")
	return nil
}

// Open opens (or creates) the store at path. An empty path opens an
// in-memory store for testing. A corrupt database is backed up aside and
// recreated empty; notes live alongside the markdown corpus, so losing them
// is reported loudly rather than silently.
func Open(path string) (*SQLiteStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, dexerrors.New(dexerrors.ErrCodeStoreOpen,
				fmt.Sprintf("failed to create store directory %s", dir), err)
		}

		if validErr := validateIntegrity(path); validErr != nil {
			slog.Warn("store_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if err := backupAside(path); err != nil {
				return nil, dexerrors.New(dexerrors.ErrCodeStoreCorrupt,
					fmt.Sprintf("store corrupt at %s and cannot back up", path), err)
			}
			slog.Info("store_recreated",
				slog.String("path", path),
				slog.String("reason", "corruption detected, previous file kept aside"))
		}

		// WAL for concurrent access; busy_timeout rides out lock contention
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, dexerrors.New(dexerrors.ErrCodeStoreOpen, "failed to open store", err)
	}

	// Single writer prevents lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN params may be ignored by modernc.org/sqlite; set pragmas explicitly
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, dexerrors.New(dexerrors.ErrCodeStoreOpen, "failed to set pragma", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, dexerrors.New(dexerrors.ErrCodeStoreOpen, "failed to initialize schema", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	-- Quick notes; tags is a JSON array of strings
	CREATE TABLE IF NOT EXISTS notes (
		key        TEXT PRIMARY KEY,
		body       TEXT NOT NULL,
		tags       TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Rebuild history
	CREATE TABLE IF NOT EXISTS builds (
		id            TEXT PRIMARY KEY,
		built_at      TEXT NOT NULL,
		docs          INTEGER NOT NULL,
		chunks        INTEGER NOT NULL,
		terms         INTEGER NOT NULL,
		capsule_bytes INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_built_at ON builds(built_at DESC);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path ("" for in-memory stores).
func (s *SQLiteStore) Path() string {
	return s.path
}

// PutNote inserts or updates a note. Updates preserve created_at and refresh
// updated_at. The stored note is returned.
func (s *SQLiteStore) PutNote(ctx context.Context, key, body string, tags []string) (*Note, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errStoreClosed()
	}

	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, dexerrors.StoreError("failed to encode tags", err)
	}

	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notes (key, body, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			tags = excluded.tags,
			updated_at = excluded.updated_at
	`, key, body, string(tagsJSON), now, now)
	if err != nil {
		return nil, dexerrors.StoreError(fmt.Sprintf("failed to save note %q", key), err)
	}

	return s.readNote(ctx, key)
}

// GetNote returns the note for key, or ErrNoteNotFound.
func (s *SQLiteStore) GetNote(ctx context.Context, key string) (*Note, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errStoreClosed()
	}

	return s.readNote(ctx, key)
}

// readNote fetches a single row. Callers hold the lock.
func (s *SQLiteStore) readNote(ctx context.Context, key string) (*Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, body, tags, created_at, updated_at
		FROM notes WHERE key = ?
	`, key)

	note, err := scanNote(row.Scan)
	if err == sql.ErrNoRows {
		return nil, dexerrors.New(dexerrors.ErrCodeNoteNotFound,
			fmt.Sprintf("note %q not found", key), nil)
	}
	if err != nil {
		return nil, dexerrors.StoreError(fmt.Sprintf("failed to read note %q", key), err)
	}
	return note, nil
}

// ListNotes returns all notes ordered by key.
func (s *SQLiteStore) ListNotes(ctx context.Context) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errStoreClosed()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, body, tags, created_at, updated_at
		FROM notes ORDER BY key
	`)
	if err != nil {
		return nil, dexerrors.StoreError("failed to list notes", err)
	}
	defer rows.Close()

	notes := []*Note{}
	for rows.Next() {
		note, err := scanNote(rows.Scan)
		if err != nil {
			return nil, dexerrors.StoreError("failed to scan note", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, dexerrors.StoreError("failed to list notes", err)
	}
	return notes, nil
}

// DeleteNote removes a note, returning ErrNoteNotFound when no row matched.
func (s *SQLiteStore) DeleteNote(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errStoreClosed()
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE key = ?`, key)
	if err != nil {
		return dexerrors.StoreError(fmt.Sprintf("failed to delete note %q", key), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return dexerrors.StoreError("failed to read delete result", err)
	}
	if affected == 0 {
		return dexerrors.New(dexerrors.ErrCodeNoteNotFound,
			fmt.Sprintf("note %q not found", key), nil)
	}
	return nil
}

// NoteCount returns the number of stored notes.
func (s *SQLiteStore) NoteCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, errStoreClosed()
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count); err != nil {
		return 0, dexerrors.StoreError("failed to count notes", err)
	}
	return count, nil
}

// RecordBuild inserts a rebuild record, or replaces it when the ID already
// exists (a capsule export re-records its build with the byte count filled
// in). A zero BuiltAt is stamped with the current time.
func (s *SQLiteStore) RecordBuild(ctx context.Context, rec *BuildRecord) error {
	if rec == nil || rec.ID == "" {
		return dexerrors.ValidationError("build record needs an ID", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errStoreClosed()
	}

	builtAt := rec.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO builds (id, built_at, docs, chunks, terms, capsule_bytes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			built_at = excluded.built_at,
			docs = excluded.docs,
			chunks = excluded.chunks,
			terms = excluded.terms,
			capsule_bytes = excluded.capsule_bytes
	`, rec.ID, builtAt.UTC().Format(timeLayout), rec.Docs, rec.Chunks, rec.Terms, rec.CapsuleBytes)
	if err != nil {
		return dexerrors.StoreError(fmt.Sprintf("failed to record build %s", rec.ID), err)
	}
	return nil
}

// LastBuild returns the most recent build record, or nil when no build has
// run yet.
func (s *SQLiteStore) LastBuild(ctx context.Context) (*BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errStoreClosed()
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, built_at, docs, chunks, terms, capsule_bytes
		FROM builds ORDER BY built_at DESC LIMIT 1
	`)

	rec, err := scanBuild(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, dexerrors.StoreError("failed to read last build", err)
	}
	return rec, nil
}

// RecentBuilds returns up to limit build records, newest first.
func (s *SQLiteStore) RecentBuilds(ctx context.Context, limit int) ([]*BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errStoreClosed()
	}

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, built_at, docs, chunks, terms, capsule_bytes
		FROM builds ORDER BY built_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, dexerrors.StoreError("failed to list builds", err)
	}
	defer rows.Close()

	builds := []*BuildRecord{}
	for rows.Next() {
		rec, err := scanBuild(rows.Scan)
		if err != nil {
			return nil, dexerrors.StoreError("failed to scan build", err)
		}
		builds = append(builds, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, dexerrors.StoreError("failed to list builds", err)
	}
	return builds, nil
}

// Close closes the store. Idempotent. A WAL checkpoint runs first so the
// main database file is complete on disk.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

func errStoreClosed() error {
	return dexerrors.New(dexerrors.ErrCodeStoreOpen, "store is closed", nil)
}

// scanNote decodes one notes row via the given Scan function.
func scanNote(scan func(dest ...any) error) (*Note, error) {
	var (
		note      Note
		tagsJSON  string
		createdAt string
		updatedAt string
	)
	if err := scan(&note.Key, &note.Body, &tagsJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &note.Tags); err != nil {
		return nil, fmt.Errorf("tags column is not a JSON array: %w", err)
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}

	var err error
	if note.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	if note.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at %q: %w", updatedAt, err)
	}
	return &note, nil
}

// scanBuild decodes one builds row via the given Scan function.
func scanBuild(scan func(dest ...any) error) (*BuildRecord, error) {
	var (
		rec     BuildRecord
		builtAt string
	)
	if err := scan(&rec.ID, &builtAt, &rec.Docs, &rec.Chunks, &rec.Terms, &rec.CapsuleBytes); err != nil {
		return nil, err
	}

	var err error
	if rec.BuiltAt, err = time.Parse(time.RFC3339Nano, builtAt); err != nil {
		return nil, fmt.Errorf("bad built_at %q: %w", builtAt, err)
	}
	return &rec, nil
}
