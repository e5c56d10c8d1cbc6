// Package store is a revision-aware document store backed by SQLite.
//
// Every document carries a revision token. Put must name the current token
// of the stored document or it is rejected with ErrConflict; Post creates a
// new document and never overwrites.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // SQLite driver.
)

var (
	// ErrNotFound is returned when no document has the requested id.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a write names a stale or missing revision,
	// or when a create collides with an existing id.
	ErrConflict = errors.New("document update conflict")
)

// Document is one stored JSON body with its identity.
type Document struct {
	ID   string
	Rev  string
	Body []byte
}

// Store wraps SQLite access for documents.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps the revision check and the write on the same
	// SQLite handle and makes ":memory:" databases usable.
	db.SetMaxOpenConns(1)
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			rev TEXT NOT NULL,
			generation INTEGER NOT NULL,
			body TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Get returns the stored document with its current revision.
func (s *Store) Get(ctx context.Context, id string) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("get: %w", ErrNotFound)
	}
	var doc Document
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, rev, body FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Rev, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %q: %w", id, err)
	}
	doc.Body = []byte(body)
	return doc, nil
}

// Put replaces an existing document. doc.Rev must be the stored revision.
// It returns the new revision.
func (s *Store) Put(ctx context.Context, doc Document) (string, error) {
	if doc.ID == "" {
		return "", fmt.Errorf("put: document id is empty")
	}
	if doc.Rev == "" {
		return "", fmt.Errorf("put %q: missing revision: %w", doc.ID, ErrConflict)
	}
	gen, err := parseGeneration(doc.Rev)
	if err != nil {
		return "", fmt.Errorf("put %q: %w", doc.ID, ErrConflict)
	}
	rev := newRevision(gen + 1)
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET rev = ?, generation = ?, body = ?, updated_at = ?
		 WHERE id = ? AND rev = ?`,
		rev, gen+1, string(doc.Body), s.timestamp(), doc.ID, doc.Rev,
	)
	if err != nil {
		return "", fmt.Errorf("put %q: %w", doc.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("put %q: %w", doc.ID, err)
	}
	if n == 0 {
		return "", fmt.Errorf("put %q at %s: %w", doc.ID, doc.Rev, ErrConflict)
	}
	return rev, nil
}

// Post creates a document. An empty doc.ID gets a fresh id. Any doc.Rev is
// ignored. It returns the id and first revision.
func (s *Store) Post(ctx context.Context, doc Document) (string, string, error) {
	id := doc.ID
	if id == "" {
		id = NewID()
	}
	rev := newRevision(1)
	now := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, rev, generation, body, created_at, updated_at)
		 VALUES (?, ?, 1, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, rev, string(doc.Body), now, now,
	)
	if err != nil {
		return "", "", fmt.Errorf("post %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", "", fmt.Errorf("post %q: %w", id, err)
	}
	if n == 0 {
		return "", "", fmt.Errorf("post %q: id already exists: %w", id, ErrConflict)
	}
	return id, rev, nil
}

// ListIDs returns every document id, oldest first.
func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM documents ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return ids, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// NewID returns a fresh, time-ordered document id.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Revisions look like "<generation>-<32 hex chars>".
func newRevision(gen int64) string {
	return strconv.FormatInt(gen, 10) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func parseGeneration(rev string) (int64, error) {
	prefix, _, ok := strings.Cut(rev, "-")
	if !ok {
		return 0, fmt.Errorf("malformed revision %q", rev)
	}
	gen, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil || gen < 1 {
		return 0, fmt.Errorf("malformed revision %q", rev)
	}
	return gen, nil
}
