package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// DatabaseFile is the name of the database inside the data directory.
const DatabaseFile = "metadata.db"

// Store is a SQLite-based storage that provides access to the
// document, summary, index and conversation stores through wrapper types.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.docqa/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docqa", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL lets readers proceed while an index is being written.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  func() time.Time { return time.Now().UTC() },
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// SummaryStore returns a SummaryStore backed by this store.
func (s *Store) SummaryStore() driven.SummaryStore {
	return &summaryStore{store: s}
}

// IndexStore returns an IndexStore backed by this store.
func (s *Store) IndexStore() driven.IndexStore {
	return &indexStore{store: s}
}

// ConversationStore returns a ConversationStore backed by this store.
func (s *Store) ConversationStore() driven.ConversationStore {
	return &conversationStore{store: s}
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, content string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(content); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// Get retrieves the record of a document for an owner.
func (s *documentStore) Get(ctx context.Context, owner, id string) (*domain.DocumentRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT owner, id, fingerprint, name, indexed, chunk_count, created_at, updated_at
		FROM documents WHERE owner = ? AND id = ?
	`, owner, id)

	rec, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

// Create inserts a new record. The (owner, id) primary key makes
// concurrent creates of the same document collapse to one row.
func (s *documentStore) Create(ctx context.Context, record *domain.DocumentRecord) error {
	now := s.store.now()
	created := record.CreatedAt
	if created.IsZero() {
		created = now
	}
	updated := record.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (owner, id, fingerprint, name, indexed, chunk_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, id) DO NOTHING
	`, record.Owner, record.ID, record.Fingerprint, record.Name,
		record.Indexed, record.ChunkCount, created, updated)
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}
	if n == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// MarkIndexed flags the record as indexed with the given chunk count.
func (s *documentStore) MarkIndexed(ctx context.Context, owner, id string, chunks int) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET indexed = 1, chunk_count = ?, updated_at = ?
		WHERE owner = ? AND id = ?
	`, chunks, s.store.now(), owner, id)
	if err != nil {
		return fmt.Errorf("marking document indexed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking document indexed: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all records of an owner, newest first.
func (s *documentStore) List(ctx context.Context, owner string) ([]domain.DocumentRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT owner, id, fingerprint, name, indexed, chunk_count, created_at, updated_at
		FROM documents WHERE owner = ?
		ORDER BY created_at DESC, id
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var records []domain.DocumentRecord
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Delete removes a record together with its summary.
// Deleting a missing record is not an error.
func (s *documentStore) Delete(ctx context.Context, owner, id string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM summaries WHERE owner = ? AND document_id = ?", owner, id); err != nil {
		return fmt.Errorf("deleting summary: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE owner = ? AND id = ?", owner, id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Summary Store ====================

// summaryStore implements driven.SummaryStore.
type summaryStore struct {
	store *Store
}

var _ driven.SummaryStore = (*summaryStore)(nil)

// Get retrieves the current summary.
func (s *summaryStore) Get(ctx context.Context, owner, documentID string) (*domain.Summary, error) {
	var sum domain.Summary
	var questionsJSON string

	err := s.store.db.QueryRowContext(ctx, `
		SELECT owner, document_id, overview, suggested_questions, version, updated_at
		FROM summaries WHERE owner = ? AND document_id = ?
	`, owner, documentID).Scan(&sum.Owner, &sum.DocumentID, &sum.Overview,
		&questionsJSON, &sum.Version, &sum.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning summary: %w", err)
	}

	if err := json.Unmarshal([]byte(questionsJSON), &sum.SuggestedQuestions); err != nil {
		return nil, fmt.Errorf("unmarshalling suggested questions: %w", err)
	}
	return &sum, nil
}

// Upsert replaces the current summary.
func (s *summaryStore) Upsert(ctx context.Context, summary *domain.Summary) error {
	questions := summary.SuggestedQuestions
	if questions == nil {
		questions = []string{}
	}
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("marshalling suggested questions: %w", err)
	}

	updated := summary.UpdatedAt
	if updated.IsZero() {
		updated = s.store.now()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO summaries (owner, document_id, overview, suggested_questions, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, document_id) DO UPDATE SET
			overview = excluded.overview,
			suggested_questions = excluded.suggested_questions,
			version = excluded.version,
			updated_at = excluded.updated_at
	`, summary.Owner, summary.DocumentID, summary.Overview, string(questionsJSON),
		summary.Version, updated)
	if err != nil {
		return fmt.Errorf("saving summary: %w", err)
	}
	return nil
}

// ==================== Index Store ====================

// indexStore implements driven.IndexStore. Both artifacts are written in
// one transaction so a reader never sees vectors without their chunks.
type indexStore struct {
	store *Store
}

var _ driven.IndexStore = (*indexStore)(nil)

// Save writes both artifacts, replacing any previous unit.
func (s *indexStore) Save(ctx context.Context, owner, documentID string, artifacts *driven.IndexArtifacts) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Cascades to index_chunks.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM document_indexes WHERE owner = ? AND document_id = ?", owner, documentID); err != nil {
		return fmt.Errorf("replacing index: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO document_indexes (owner, document_id, vectors, created_at)
		VALUES (?, ?, ?, ?)
	`, owner, documentID, artifacts.Vectors, s.store.now()); err != nil {
		return fmt.Errorf("saving vectors: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_chunks (owner, document_id, position, text, source, page)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range artifacts.Chunks {
		if _, err := stmt.ExecContext(ctx, owner, documentID, i, chunk.Text, chunk.Source, chunk.Page); err != nil {
			return fmt.Errorf("saving chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Load reads both artifacts.
func (s *indexStore) Load(ctx context.Context, owner, documentID string) (*driven.IndexArtifacts, error) {
	var artifacts driven.IndexArtifacts

	err := s.store.db.QueryRowContext(ctx,
		"SELECT vectors FROM document_indexes WHERE owner = ? AND document_id = ?",
		owner, documentID).Scan(&artifacts.Vectors)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading vectors: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT text, source, page FROM index_chunks
		WHERE owner = ? AND document_id = ?
		ORDER BY position
	`, owner, documentID)
	if err != nil {
		return nil, fmt.Errorf("loading chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.Text, &c.Source, &c.Page); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		artifacts.Chunks = append(artifacts.Chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading chunks: %w", err)
	}
	return &artifacts, nil
}

// Exists reports whether a unit exists.
func (s *indexStore) Exists(ctx context.Context, owner, documentID string) (bool, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM document_indexes WHERE owner = ? AND document_id = ?",
		owner, documentID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking index: %w", err)
	}
	return n > 0, nil
}

// Delete removes the unit.
func (s *indexStore) Delete(ctx context.Context, owner, documentID string) error {
	if _, err := s.store.db.ExecContext(ctx,
		"DELETE FROM document_indexes WHERE owner = ? AND document_id = ?", owner, documentID); err != nil {
		return fmt.Errorf("deleting index: %w", err)
	}
	return nil
}

// ==================== Conversation Store ====================

// conversationStore implements driven.ConversationStore. Expired rows are
// ignored on read and swept on write.
type conversationStore struct {
	store *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// Get returns the value for key, or nil if it is missing or expired.
func (s *conversationStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	var expires int64
	err := s.store.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM conversations WHERE key = ?", key).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	if expires > 0 && s.store.now().UnixMilli() >= expires {
		return nil, nil
	}
	return value, nil
}

// Set stores value under key and resets its expiry to ttl.
func (s *conversationStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.store.now()
	var expires int64
	if ttl > 0 {
		expires = now.Add(ttl).UnixMilli()
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM conversations WHERE expires_at > 0 AND expires_at <= ?", now.UnixMilli()); err != nil {
		return fmt.Errorf("sweeping conversations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, expires); err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete removes key immediately.
func (s *conversationStore) Delete(ctx context.Context, key string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM conversations WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row scanner) (*domain.DocumentRecord, error) {
	var rec domain.DocumentRecord
	if err := row.Scan(&rec.Owner, &rec.ID, &rec.Fingerprint, &rec.Name,
		&rec.Indexed, &rec.ChunkCount, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &rec, nil
}
