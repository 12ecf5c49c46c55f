package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/ports/driven"
	"github.com/scribehq/scribe/internal/similarity"
)

// Default search parameters.
const (
	DefaultTopK      = 5
	DefaultThreshold = 0.7
)

// VectorStoreService persists documents and chunks and answers
// similarity searches. Ranking runs through the vector index when
// available and falls back to scanning stored chunks; both paths use
// the same cosine ranking, so results are identical.
type VectorStoreService struct {
	store driven.DocumentStore
	index driven.VectorIndex
	log   *slog.Logger
}

// NewVectorStoreService creates a vector store service. index may be
// nil, in which case every search takes the fallback path.
func NewVectorStoreService(store driven.DocumentStore, index driven.VectorIndex, log *slog.Logger) *VectorStoreService {
	return &VectorStoreService{
		store: store,
		index: index,
		log:   log,
	}
}

// CreateDocument registers a document for a tenant and returns it with
// a generated id.
func (s *VectorStoreService) CreateDocument(ctx context.Context, tenantID, name, source string, metadata map[string]any) (*domain.Document, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required: %w", domain.ErrInvalidInput)
	}
	if name == "" {
		return nil, fmt.Errorf("document name is required: %w", domain.ErrInvalidInput)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	doc := &domain.Document{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      name,
		Source:    source,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}

	s.log.Info("document created",
		"document_id", doc.ID, "tenant_id", tenantID, "name", name)
	return doc, nil
}

// StoreChunks persists chunk texts with their embeddings under a
// document and adds them to the vector index. Texts and embeddings
// must pair up exactly; on mismatch nothing is stored.
func (s *VectorStoreService) StoreChunks(ctx context.Context, doc *domain.Document, texts []string, metadatas []map[string]any, embeddings [][]float32) ([]domain.Chunk, error) {
	if len(texts) != len(embeddings) {
		return nil, fmt.Errorf("got %d texts but %d embeddings: %w",
			len(texts), len(embeddings), domain.ErrInvalidInput)
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return nil, fmt.Errorf("got %d texts but %d metadata entries: %w",
			len(texts), len(metadatas), domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		var meta map[string]any
		if metadatas != nil {
			meta = metadatas[i]
		}
		if meta == nil {
			meta = map[string]any{}
		}
		chunks[i] = domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			TenantID:   doc.TenantID,
			Content:    text,
			Metadata:   meta,
			Embedding:  embeddings[i],
			CreatedAt:  now,
		}
	}

	if err := s.store.SaveChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("saving chunks: %w", err)
	}

	s.indexChunks(ctx, chunks)

	s.log.Info("chunks stored",
		"document_id", doc.ID, "tenant_id", doc.TenantID, "count", len(chunks))
	return chunks, nil
}

// indexChunks adds chunks to the vector index. Index failures are
// logged, not fatal: the fallback path still serves searches from the
// store.
func (s *VectorStoreService) indexChunks(ctx context.Context, chunks []domain.Chunk) {
	if s.index == nil {
		return
	}
	for _, chunk := range chunks {
		if err := s.index.Add(ctx, chunk); err != nil {
			s.log.Warn("vector index add failed, chunk served via fallback only",
				"chunk_id", chunk.ID, "error", err)
		}
	}
}

// SimilaritySearch returns a tenant's chunks ranked by cosine
// similarity to the query embedding. The index is tried first; on
// failure the search falls back to ranking stored chunks client-side.
func (s *VectorStoreService) SimilaritySearch(ctx context.Context, q driven.VectorQuery) ([]domain.ScoredChunk, error) {
	if q.TenantID == "" {
		return nil, fmt.Errorf("tenant id is required: %w", domain.ErrInvalidInput)
	}
	if len(q.Embedding) == 0 {
		return nil, fmt.Errorf("query embedding is required: %w", domain.ErrInvalidInput)
	}
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}
	if q.Threshold == 0 {
		q.Threshold = DefaultThreshold
	}

	if s.index != nil {
		hits, err := s.index.Search(ctx, q)
		if err == nil {
			return hits, nil
		}
		s.log.Warn("vector index search failed, using fallback",
			"tenant_id", q.TenantID, "error", err)
	}

	return s.fallbackSearch(ctx, q)
}

// fallbackSearch ranks the tenant's stored chunks in memory.
func (s *VectorStoreService) fallbackSearch(ctx context.Context, q driven.VectorQuery) ([]domain.ScoredChunk, error) {
	chunks, err := s.store.ChunksByTenant(ctx, q.TenantID, q.DocumentIDs)
	if err != nil {
		return nil, fmt.Errorf("loading chunks for fallback search: %w: %w", domain.ErrRetrieval, err)
	}
	return similarity.Rank(q.Embedding, chunks, q.Threshold, q.TopK), nil
}

// GetDocument returns a tenant's document.
func (s *VectorStoreService) GetDocument(ctx context.Context, id, tenantID string) (*domain.Document, error) {
	return s.store.GetDocument(ctx, id, tenantID)
}

// ListDocuments returns one page of a tenant's documents.
func (s *VectorStoreService) ListDocuments(ctx context.Context, tenantID string, limit, offset int) (*domain.DocumentPage, error) {
	return s.store.ListDocuments(ctx, tenantID, limit, offset)
}

// DeleteDocument removes a document, its chunks, and its index entries.
// Returns false when the tenant has no such document.
func (s *VectorStoreService) DeleteDocument(ctx context.Context, id, tenantID string) (bool, error) {
	deleted, err := s.store.DeleteDocument(ctx, id, tenantID)
	if err != nil {
		return false, fmt.Errorf("deleting document: %w", err)
	}
	if !deleted {
		return false, nil
	}

	if s.index != nil {
		if err := s.index.RemoveDocument(ctx, tenantID, id); err != nil {
			s.log.Warn("vector index cleanup failed",
				"document_id", id, "tenant_id", tenantID, "error", err)
		}
	}

	s.log.Info("document deleted", "document_id", id, "tenant_id", tenantID)
	return true, nil
}

// Rehydrate loads every stored chunk into the vector index. Called at
// startup so the in-process index survives restarts.
func (s *VectorStoreService) Rehydrate(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}

	chunks, err := s.store.AllChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading chunks for rehydration: %w", err)
	}

	added := 0
	for _, chunk := range chunks {
		if err := s.index.Add(ctx, chunk); err != nil {
			s.log.Warn("rehydration skipped chunk", "chunk_id", chunk.ID, "error", err)
			continue
		}
		added++
	}

	s.log.Info("vector index rehydrated", "chunks", added)
	return added, nil
}
