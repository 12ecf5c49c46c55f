package driven

import (
	"context"

	"github.com/scribehq/scribe/internal/core/domain"
)

// VectorQuery describes one similarity search.
type VectorQuery struct {
	// TenantID scopes the search to one tenant's chunks.
	TenantID string

	// Embedding is the query vector.
	Embedding []float32

	// TopK is the maximum number of results.
	TopK int

	// Threshold is the minimum cosine similarity for a hit.
	Threshold float64

	// DocumentIDs optionally restricts the search to specific documents.
	DocumentIDs []string
}

// VectorIndex is the store's native ranking capability (the primary
// similarity path). Implementations must rank identically to the
// client-side fallback: cosine similarity, threshold filter, descending
// sort, top-K truncation.
type VectorIndex interface {
	// Add inserts a chunk and its embedding into the index.
	Add(ctx context.Context, chunk domain.Chunk) error

	// RemoveDocument drops all vectors belonging to a document.
	RemoveDocument(ctx context.Context, tenantID, documentID string) error

	// Search returns ranked chunks with similarity scores.
	Search(ctx context.Context, q VectorQuery) ([]domain.ScoredChunk, error)
}
