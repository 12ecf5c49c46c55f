// Package sqlite provides the SQLite-backed document store.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scribehq/scribe/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is the SQLite-backed document and chunk store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a store at the specified data directory.
// If dataDir is empty, defaults to ~/.scribe/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".scribe", "data")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "scribe.db")

	// WAL mode for better concurrency between ingestion and search.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
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

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
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
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// CreateDocument stores a new document.
func (s *Store) CreateDocument(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, tenant_id, name, source, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.TenantID, doc.Name, doc.Source, string(metadataJSON), doc.CreatedAt)

	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by id within a tenant.
func (s *Store) GetDocument(ctx context.Context, id, tenantID string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, source, metadata, created_at
		FROM documents WHERE id = ? AND tenant_id = ?
	`, id, tenantID)

	return scanDocument(row)
}

// ListDocuments returns one page of a tenant's documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, tenantID string, limit, offset int) (*domain.DocumentPage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, source, metadata, created_at
		FROM documents WHERE tenant_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	var total int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE tenant_id = ?", tenantID,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}

	return &domain.DocumentPage{Documents: docs, Total: total}, nil
}

// DeleteDocument removes a document and its chunks via cascade, in one
// statement, so there is no intermediate state. Returns false when the
// document does not exist in the tenant.
func (s *Store) DeleteDocument(ctx context.Context, id, tenantID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE id = ? AND tenant_id = ?", id, tenantID)
	if err != nil {
		return false, fmt.Errorf("deleting document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking deletion: %w", err)
	}
	return affected > 0, nil
}

// SaveChunks stores chunks in a single transaction. Every chunk's
// tenant must match its parent document's tenant.
func (s *Store) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, chunk := range chunks {
		var docTenant string
		err := tx.QueryRowContext(ctx,
			"SELECT tenant_id FROM documents WHERE id = ?", chunk.DocumentID,
		).Scan(&docTenant)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("chunk %s: parent document %s: %w", chunk.ID, chunk.DocumentID, domain.ErrNotFound)
			}
			return fmt.Errorf("resolving parent document: %w", err)
		}
		if docTenant != chunk.TenantID {
			return fmt.Errorf("chunk %s: tenant %s does not own document %s: %w",
				chunk.ID, chunk.TenantID, chunk.DocumentID, domain.ErrInvalidInput)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, tenant_id, content, metadata, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.TenantID,
			chunk.Content, string(metadataJSON), float32SliceToBytes(chunk.Embedding),
			chunk.CreatedAt); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ChunksByTenant returns a tenant's chunks, optionally restricted to a
// document allow-list.
func (s *Store) ChunksByTenant(ctx context.Context, tenantID string, documentIDs []string) ([]domain.Chunk, error) {
	query := `
		SELECT id, document_id, tenant_id, content, metadata, embedding, created_at
		FROM chunks WHERE tenant_id = ?
	`
	args := []any{tenantID}

	if len(documentIDs) > 0 {
		query += " AND document_id IN (?" + strings.Repeat(", ?", len(documentIDs)-1) + ")"
		for _, id := range documentIDs {
			args = append(args, id)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// AllChunks returns every stored chunk, for index rehydration.
func (s *Store) AllChunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, tenant_id, content, metadata, embedding, created_at
		FROM chunks
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// scanner abstracts sql.Row and sql.Rows for scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row *sql.Row) (*domain.Document, error) {
	doc, err := scanDocumentFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func scanDocumentRows(rows *sql.Rows) (*domain.Document, error) {
	return scanDocumentFrom(rows)
}

func scanDocumentFrom(sc scanner) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON string
	var createdAt time.Time

	if err := sc.Scan(&doc.ID, &doc.TenantID, &doc.Name, &doc.Source,
		&metadataJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.CreatedAt = createdAt
	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling document metadata: %w", err)
	}
	return &doc, nil
}

func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var metadataJSON string
		var embeddingBlob []byte
		var createdAt time.Time

		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.TenantID,
			&chunk.Content, &metadataJSON, &embeddingBlob, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		chunk.CreatedAt = createdAt
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
		}

		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// float32SliceToBytes encodes an embedding as a little-endian blob.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	bytes := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(bytes[i*4:], math.Float32bits(f))
	}
	return bytes
}

// bytesToFloat32Slice decodes a little-endian blob into an embedding.
func bytesToFloat32Slice(bytes []byte) []float32 {
	if len(bytes) == 0 || len(bytes)%4 != 0 {
		return nil
	}
	floats := make([]float32, len(bytes)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(bytes[i*4:]))
	}
	return floats
}
