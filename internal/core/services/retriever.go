package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/ports/driven"
)

// DefaultMaxContextChars caps the assembled context window.
const DefaultMaxContextChars = 4000

// Rank fusion constants.
const (
	// rrfK dampens the influence of top ranks in reciprocal rank fusion.
	rrfK = 60

	// absentRank is the sentinel rank for chunks missing from one list.
	absentRank = 1000

	// DefaultSemanticWeight favours the semantic list in hybrid search.
	DefaultSemanticWeight = 0.7
)

// RetrieverService turns queries into citation-enriched chunks. It
// owns query embedding, rank fusion, and context window assembly.
type RetrieverService struct {
	vectorstore *VectorStoreService
	embedder    driven.EmbeddingService
	keyword     driven.KeywordSearcher
	log         *slog.Logger
}

// NewRetrieverService creates a retriever. keyword may be nil, in which
// case hybrid search degrades to semantic-only ordering.
func NewRetrieverService(vectorstore *VectorStoreService, embedder driven.EmbeddingService, keyword driven.KeywordSearcher, log *slog.Logger) *RetrieverService {
	return &RetrieverService{
		vectorstore: vectorstore,
		embedder:    embedder,
		keyword:     keyword,
		log:         log,
	}
}

// RetrieveOptions tunes one retrieval.
type RetrieveOptions struct {
	// TopK is the result cap (default 5).
	TopK int

	// DocumentIDs restricts retrieval to specific documents.
	DocumentIDs []string
}

// Retrieve embeds the query, runs a similarity search, and enriches
// the hits with citations.
func (s *RetrieverService) Retrieve(ctx context.Context, tenantID, query string, opts RetrieveOptions) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	hits, err := s.vectorstore.SimilaritySearch(ctx, driven.VectorQuery{
		TenantID:    tenantID,
		Embedding:   embedding,
		TopK:        topK,
		Threshold:   DefaultThreshold,
		DocumentIDs: opts.DocumentIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	enriched, err := s.addCitations(ctx, tenantID, hits)
	if err != nil {
		return nil, err
	}

	s.log.Debug("retrieval complete",
		"tenant_id", tenantID, "hits", len(enriched))
	return enriched, nil
}

// addCitations resolves each hit's document name and page label.
// Document lookups are batched per unique document id; an unresolvable
// document yields the "Unknown" source rather than failing retrieval.
func (s *RetrieverService) addCitations(ctx context.Context, tenantID string, hits []domain.ScoredChunk) ([]domain.RetrievedChunk, error) {
	names := make(map[string]string)
	for _, hit := range hits {
		docID := hit.Chunk.DocumentID
		if _, seen := names[docID]; seen {
			continue
		}
		doc, err := s.vectorstore.GetDocument(ctx, docID, tenantID)
		if err != nil {
			names[docID] = "Unknown"
			continue
		}
		names[docID] = doc.Name
	}

	enriched := make([]domain.RetrievedChunk, len(hits))
	for i, hit := range hits {
		enriched[i] = domain.RetrievedChunk{
			Content:    hit.Chunk.Content,
			Similarity: hit.Similarity,
			Citation: domain.Citation{
				Source:     names[hit.Chunk.DocumentID],
				Page:       pageLabel(hit.Chunk.Metadata),
				DocumentID: hit.Chunk.DocumentID,
			},
			Metadata: hit.Chunk.Metadata,
		}
	}
	return enriched, nil
}

// pageLabel picks the citation page: the page metadata when present,
// falling back to the chunk index, then "N/A".
func pageLabel(metadata map[string]any) string {
	if v, ok := metadata["page"]; ok {
		return metaString(v)
	}
	if v, ok := metadata["chunk_index"]; ok {
		return metaString(v)
	}
	return "N/A"
}

// metaString renders a metadata value without a float suffix; JSON
// round-trips turn ints into float64.
func metaString(v any) string {
	switch n := v.(type) {
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%v", n)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// HybridSearch fuses semantic and keyword retrieval with reciprocal
// rank fusion. Both lists are fetched at twice the requested depth so
// fusion has enough candidates to reorder.
func (s *RetrieverService) HybridSearch(ctx context.Context, tenantID, query string, topK int, semanticWeight float64) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if semanticWeight < 0 || semanticWeight > 1 {
		return nil, fmt.Errorf("semantic weight %v out of [0,1]: %w", semanticWeight, domain.ErrInvalidInput)
	}

	semantic, err := s.Retrieve(ctx, tenantID, query, RetrieveOptions{TopK: topK * 2})
	if err != nil {
		return nil, err
	}

	var keyword []domain.RetrievedChunk
	if s.keyword != nil {
		keyword, err = s.keyword.Search(ctx, tenantID, query, topK*2)
		if err != nil {
			return nil, fmt.Errorf("keyword search: %w: %w", domain.ErrRetrieval, err)
		}
	}

	fused := fuseRanks(semantic, keyword, semanticWeight)
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

// fuseRanks merges two ranked lists with reciprocal rank fusion. Lists
// are keyed by chunk content; a chunk absent from one list takes the
// sentinel rank. Ties keep semantic order ahead of keyword-only hits.
func fuseRanks(semantic, keyword []domain.RetrievedChunk, semanticWeight float64) []domain.RetrievedChunk {
	semanticRank := make(map[string]int, len(semantic))
	for i, chunk := range semantic {
		if _, seen := semanticRank[chunk.Content]; !seen {
			semanticRank[chunk.Content] = i + 1
		}
	}
	keywordRank := make(map[string]int, len(keyword))
	for i, chunk := range keyword {
		if _, seen := keywordRank[chunk.Content]; !seen {
			keywordRank[chunk.Content] = i + 1
		}
	}

	type scored struct {
		chunk domain.RetrievedChunk
		score float64
	}

	seen := make(map[string]bool)
	var all []scored
	for _, list := range [][]domain.RetrievedChunk{semantic, keyword} {
		for _, chunk := range list {
			if seen[chunk.Content] {
				continue
			}
			seen[chunk.Content] = true

			rs, ok := semanticRank[chunk.Content]
			if !ok {
				rs = absentRank
			}
			rk, ok := keywordRank[chunk.Content]
			if !ok {
				rk = absentRank
			}

			score := semanticWeight/float64(rrfK+rs) + (1-semanticWeight)/float64(rrfK+rk)
			all = append(all, scored{chunk: chunk, score: score})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].score > all[j].score
	})

	fused := make([]domain.RetrievedChunk, len(all))
	for i, sc := range all {
		fused[i] = sc.chunk
	}
	return fused
}

// ContextForQuery retrieves chunks and assembles them into a bounded
// context string. A chunk is included only when its formatted block
// plus the joiner it introduces fits within maxChars; the first chunk
// that does not fit stops assembly.
func (s *RetrieverService) ContextForQuery(ctx context.Context, tenantID, query string, maxChars int) (string, []domain.RetrievedChunk, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}

	chunks, err := s.Retrieve(ctx, tenantID, query, RetrieveOptions{})
	if err != nil {
		return "", nil, err
	}

	const joiner = "\n---\n\n"

	var parts []string
	var included []domain.RetrievedChunk
	total := 0

	for _, chunk := range chunks {
		formatted := fmt.Sprintf("[Source: %s, page %s]\n%s\n",
			chunk.Citation.Source, chunk.Citation.Page, chunk.Content)

		cost := len(formatted)
		if len(parts) > 0 {
			cost += len(joiner)
		}
		if total+cost > maxChars {
			break
		}

		parts = append(parts, formatted)
		included = append(included, chunk)
		total += cost
	}

	return strings.Join(parts, joiner), included, nil
}
