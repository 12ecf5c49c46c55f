package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/ports/driven"
	"github.com/scribehq/scribe/internal/splitter"
)

// DefaultMaxFileBytes caps uploads at 10MB.
const DefaultMaxFileBytes = 10 * 1024 * 1024

// IngestService turns uploaded files and URLs into stored, embedded,
// searchable chunks.
type IngestService struct {
	loader       driven.IngestionLoader
	split        *splitter.Splitter
	embedder     driven.EmbeddingService
	vectorstore  *VectorStoreService
	maxFileBytes int
	log          *slog.Logger
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithMaxFileBytes overrides the upload size cap.
func WithMaxFileBytes(n int) IngestOption {
	return func(s *IngestService) { s.maxFileBytes = n }
}

// NewIngestService creates an ingestion service.
func NewIngestService(
	loader driven.IngestionLoader,
	split *splitter.Splitter,
	embedder driven.EmbeddingService,
	vectorstore *VectorStoreService,
	log *slog.Logger,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		loader:       loader,
		split:        split,
		embedder:     embedder,
		vectorstore:  vectorstore,
		maxFileBytes: DefaultMaxFileBytes,
		log:          log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestFile parses, chunks, embeds, and stores an uploaded file.
func (s *IngestService) IngestFile(ctx context.Context, tenantID, filename string, content []byte) (*domain.IngestResult, error) {
	if len(content) > s.maxFileBytes {
		return nil, fmt.Errorf("file size %.2fMB exceeds the %dMB limit: %w",
			float64(len(content))/(1024*1024), s.maxFileBytes/(1024*1024), domain.ErrInvalidInput)
	}
	if !s.loader.SupportsExtension(filename) {
		return nil, fmt.Errorf("unsupported file format %q: %w",
			filepath.Ext(filename), domain.ErrUnsupportedType)
	}

	sections, err := s.loader.LoadFile(ctx, content, filename)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filename, err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	for i := range sections {
		if sections[i].Metadata == nil {
			sections[i].Metadata = map[string]any{}
		}
		sections[i].Metadata["source"] = filename
		sections[i].Metadata["file_type"] = ext
		if _, ok := sections[i].Metadata["page"]; !ok {
			sections[i].Metadata["page"] = 1
		}
	}

	docMetadata := map[string]any{
		"original_filename": filename,
		"file_type":         ext,
		"page_count":        len(sections),
	}

	return s.store(ctx, tenantID, filename, filename, sections, docMetadata)
}

// IngestURL fetches, parses, chunks, embeds, and stores a web page.
func (s *IngestService) IngestURL(ctx context.Context, tenantID, url string) (*domain.IngestResult, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("url is required: %w", domain.ErrInvalidInput)
	}

	sections, err := s.loader.LoadURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("loading url %s: %w", url, err)
	}

	for i := range sections {
		if sections[i].Metadata == nil {
			sections[i].Metadata = map[string]any{}
		}
		sections[i].Metadata["source"] = url
		sections[i].Metadata["source_type"] = "url"
	}

	docMetadata := map[string]any{
		"source_type":   "url",
		"section_count": len(sections),
	}

	return s.store(ctx, tenantID, url, url, sections, docMetadata)
}

// store runs the shared tail of ingestion: chunk, embed, persist.
func (s *IngestService) store(ctx context.Context, tenantID, name, source string, sections []domain.Section, docMetadata map[string]any) (*domain.IngestResult, error) {
	var totalLen int
	for _, section := range sections {
		totalLen += len(section.Content)
	}
	s.log.Debug("ingestion pre-flight",
		"name", name, "sections", len(sections), "chars", totalLen,
		"suggested_chunk_size", s.split.OptimalChunkSizeFor(totalLen))

	var texts []string
	var metadatas []map[string]any
	for docIdx, section := range sections {
		for _, chunk := range s.split.Chunks(section.Content, section.Metadata) {
			chunk.Metadata["doc_index"] = docIdx
			texts = append(texts, chunk.Content)
			metadatas = append(metadatas, chunk.Metadata)
		}
	}

	if len(texts) == 0 {
		return nil, fmt.Errorf("document %q produced no chunks: %w", name, domain.ErrInvalidInput)
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}

	doc, err := s.vectorstore.CreateDocument(ctx, tenantID, name, source, docMetadata)
	if err != nil {
		return nil, err
	}

	if _, err := s.vectorstore.StoreChunks(ctx, doc, texts, metadatas, embeddings); err != nil {
		return nil, err
	}

	s.log.Info("document ingested",
		"document_id", doc.ID, "tenant_id", tenantID, "name", name, "chunks", len(texts))

	return &domain.IngestResult{
		DocumentID:    doc.ID,
		ChunksCreated: len(texts),
	}, nil
}
