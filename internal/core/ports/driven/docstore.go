package driven

import (
	"context"

	"github.com/scribehq/scribe/internal/core/domain"
)

// DocumentStore persists documents and chunks, scoped to tenants.
// Backed by SQLite for relational storage.
type DocumentStore interface {
	// CreateDocument stores a new document.
	CreateDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by id within a tenant.
	// Returns domain.ErrNotFound when absent or owned by another tenant.
	GetDocument(ctx context.Context, id, tenantID string) (*domain.Document, error)

	// ListDocuments returns one page of a tenant's documents, newest
	// first, along with the tenant's total count.
	ListDocuments(ctx context.Context, tenantID string, limit, offset int) (*domain.DocumentPage, error)

	// DeleteDocument removes a document and all its chunks atomically.
	// Returns false when the document does not exist in the tenant;
	// a guessed id from another tenant never deletes anything.
	DeleteDocument(ctx context.Context, id, tenantID string) (bool, error)

	// SaveChunks stores chunks in a single transaction.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// ChunksByTenant returns a tenant's chunks, optionally restricted to
	// a document-id allow-list. Used by the fallback similarity path.
	ChunksByTenant(ctx context.Context, tenantID string, documentIDs []string) ([]domain.Chunk, error)

	// AllChunks returns every stored chunk. Used to rehydrate the vector
	// index at startup.
	AllChunks(ctx context.Context) ([]domain.Chunk, error)

	// Close releases resources.
	Close() error
}
