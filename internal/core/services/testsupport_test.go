package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/ports/driven"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory DocumentStore used across service tests.
type memStore struct {
	docs      map[string]*domain.Document
	chunks    []domain.Chunk
	saveErr   error
	chunksErr error
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]*domain.Document{}}
}

func (m *memStore) CreateDocument(_ context.Context, doc *domain.Document) error {
	m.docs[doc.ID] = doc
	return nil
}

func (m *memStore) GetDocument(_ context.Context, id, tenantID string) (*domain.Document, error) {
	doc, ok := m.docs[id]
	if !ok || doc.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *memStore) ListDocuments(_ context.Context, tenantID string, limit, offset int) (*domain.DocumentPage, error) {
	var all []domain.Document
	for _, doc := range m.docs {
		if doc.TenantID == tenantID {
			all = append(all, *doc)
		}
	}
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return &domain.DocumentPage{Documents: all, Total: total}, nil
}

func (m *memStore) DeleteDocument(_ context.Context, id, tenantID string) (bool, error) {
	doc, ok := m.docs[id]
	if !ok || doc.TenantID != tenantID {
		return false, nil
	}
	delete(m.docs, id)
	kept := m.chunks[:0]
	for _, chunk := range m.chunks {
		if chunk.DocumentID != id {
			kept = append(kept, chunk)
		}
	}
	m.chunks = kept
	return true, nil
}

func (m *memStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *memStore) ChunksByTenant(_ context.Context, tenantID string, documentIDs []string) ([]domain.Chunk, error) {
	if m.chunksErr != nil {
		return nil, m.chunksErr
	}
	allow := map[string]bool{}
	for _, id := range documentIDs {
		allow[id] = true
	}
	var out []domain.Chunk
	for _, chunk := range m.chunks {
		if chunk.TenantID != tenantID {
			continue
		}
		if len(allow) > 0 && !allow[chunk.DocumentID] {
			continue
		}
		out = append(out, chunk)
	}
	return out, nil
}

func (m *memStore) AllChunks(_ context.Context) ([]domain.Chunk, error) {
	return append([]domain.Chunk(nil), m.chunks...), nil
}

func (m *memStore) Close() error { return nil }

// failingIndex always errors, forcing the fallback path.
type failingIndex struct{}

func (failingIndex) Add(context.Context, domain.Chunk) error               { return errors.New("index down") }
func (failingIndex) RemoveDocument(context.Context, string, string) error { return errors.New("index down") }
func (failingIndex) Search(context.Context, driven.VectorQuery) ([]domain.ScoredChunk, error) {
	return nil, errors.New("index down")
}

// stubEmbedder returns preset vectors per text, defaulting to a unit
// vector so unconfigured texts still embed.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := s.vectors[text]; ok {
			out[i] = vec
			continue
		}
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int   { return 2 }
func (s *stubEmbedder) ModelName() string { return "stub-model" }

// stubChatModel replays scripted deltas, optionally ending with an error.
type stubChatModel struct {
	provider  domain.Provider
	answer    string
	deltas    []string
	streamErr error
	startErr  error
	lastReq   driven.ChatProviderRequest
}

func (s *stubChatModel) CompleteChat(_ context.Context, req driven.ChatProviderRequest) (string, error) {
	s.lastReq = req
	if s.startErr != nil {
		return "", s.startErr
	}
	return s.answer, nil
}

func (s *stubChatModel) StreamChat(ctx context.Context, req driven.ChatProviderRequest) (<-chan driven.StreamDelta, error) {
	s.lastReq = req
	if s.startErr != nil {
		return nil, s.startErr
	}
	out := make(chan driven.StreamDelta)
	go func() {
		defer close(out)
		for _, delta := range s.deltas {
			select {
			case out <- driven.StreamDelta{Content: delta}:
			case <-ctx.Done():
				return
			}
		}
		if s.streamErr != nil {
			select {
			case out <- driven.StreamDelta{Err: s.streamErr}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (s *stubChatModel) Name() domain.Provider { return s.provider }

// stubLoader serves canned sections keyed by file name or URL.
type stubLoader struct {
	sections map[string][]domain.Section
	urlErr   error
}

func (s *stubLoader) LoadFile(_ context.Context, _ []byte, filename string) ([]domain.Section, error) {
	sections, ok := s.sections[filename]
	if !ok {
		return nil, fmt.Errorf("unsupported file format: %w", domain.ErrUnsupportedType)
	}
	return cloneSections(sections), nil
}

func (s *stubLoader) LoadURL(_ context.Context, url string) ([]domain.Section, error) {
	if s.urlErr != nil {
		return nil, s.urlErr
	}
	sections, ok := s.sections[url]
	if !ok {
		return nil, fmt.Errorf("fetch failed: %w", domain.ErrInvalidInput)
	}
	return cloneSections(sections), nil
}

func (s *stubLoader) SupportsExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".txt", ".csv", ".md", ".html":
		return true
	}
	return false
}

func cloneSections(sections []domain.Section) []domain.Section {
	out := make([]domain.Section, len(sections))
	for i, section := range sections {
		meta := make(map[string]any, len(section.Metadata))
		for k, v := range section.Metadata {
			meta[k] = v
		}
		out[i] = domain.Section{Content: section.Content, Metadata: meta}
	}
	return out
}

// keywordStub returns a fixed ranked list.
type keywordStub struct {
	results []domain.RetrievedChunk
}

func (k *keywordStub) Search(context.Context, string, string, int) ([]domain.RetrievedChunk, error) {
	return k.results, nil
}
