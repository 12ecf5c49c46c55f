// Package memory provides an in-process, tenant-partitioned vector index.
package memory

import (
	"context"
	"sync"

	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/ports/driven"
	"github.com/scribehq/scribe/internal/similarity"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex ranks chunks by brute-force cosine similarity. Each
// tenant's partition is independent, so concurrent ingestion into
// different tenants never contends beyond the map lock.
type VectorIndex struct {
	mu      sync.RWMutex
	tenants map[string][]domain.Chunk
}

// NewVectorIndex creates an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		tenants: make(map[string][]domain.Chunk),
	}
}

// Add inserts a chunk into its tenant's partition.
func (idx *VectorIndex) Add(_ context.Context, chunk domain.Chunk) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tenants[chunk.TenantID] = append(idx.tenants[chunk.TenantID], chunk)
	return nil
}

// RemoveDocument drops all vectors belonging to a document.
func (idx *VectorIndex) RemoveDocument(_ context.Context, tenantID, documentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	chunks := idx.tenants[tenantID]
	kept := chunks[:0]
	for _, c := range chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	idx.tenants[tenantID] = kept
	return nil
}

// Search ranks the tenant's chunks with the shared cosine routine.
func (idx *VectorIndex) Search(_ context.Context, q driven.VectorQuery) ([]domain.ScoredChunk, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	candidates := idx.tenants[q.TenantID]

	if len(q.DocumentIDs) > 0 {
		allowed := make(map[string]bool, len(q.DocumentIDs))
		for _, id := range q.DocumentIDs {
			allowed[id] = true
		}

		filtered := make([]domain.Chunk, 0, len(candidates))
		for _, c := range candidates {
			if allowed[c.DocumentID] {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	return similarity.Rank(q.Embedding, candidates, q.Threshold, q.TopK), nil
}

// Len returns the number of indexed chunks for a tenant.
func (idx *VectorIndex) Len(tenantID string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.tenants[tenantID])
}
