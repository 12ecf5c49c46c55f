package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribehq/scribe/internal/adapters/driven/index/memory"
	"github.com/scribehq/scribe/internal/adapters/driven/keyword"
	"github.com/scribehq/scribe/internal/adapters/driven/storage/sqlite"
	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/ports/driven"
	"github.com/scribehq/scribe/internal/core/services"
	"github.com/scribehq/scribe/internal/loaders"
	"github.com/scribehq/scribe/internal/splitter"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return stubVector(text), nil
}

func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = stubVector(text)
	}
	return out, nil
}

func (stubEmbedder) Dimensions() int   { return 2 }
func (stubEmbedder) ModelName() string { return "stub-embedder" }

// stubVector maps every text to the same direction so any query
// matches any stored chunk with similarity 1.
func stubVector(string) []float32 { return []float32{1, 0} }

type stubChatModel struct {
	answer   string
	deltas   []string
	startErr error
	midErr   error
}

func (m *stubChatModel) CompleteChat(context.Context, driven.ChatProviderRequest) (string, error) {
	if m.startErr != nil {
		return "", m.startErr
	}
	return m.answer, nil
}

func (m *stubChatModel) StreamChat(context.Context, driven.ChatProviderRequest) (<-chan driven.StreamDelta, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	out := make(chan driven.StreamDelta, len(m.deltas)+1)
	for _, delta := range m.deltas {
		out <- driven.StreamDelta{Content: delta}
	}
	if m.midErr != nil {
		out <- driven.StreamDelta{Err: m.midErr}
	}
	close(out)
	return out, nil
}

func (*stubChatModel) Name() domain.Provider { return domain.ProviderOpenAI }

func newTestServer(t *testing.T, model driven.ChatModel) *Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	split, err := splitter.New(splitter.WithChunkSize(200), splitter.WithChunkOverlap(20))
	require.NoError(t, err)

	embedder := stubEmbedder{}
	vectorstore := services.NewVectorStoreService(store, memory.NewVectorIndex(), log)
	retriever := services.NewRetrieverService(vectorstore, embedder, keyword.NewNoop(), log)
	chat := services.NewChatService(retriever, []driven.ChatModel{model}, log)
	ingest := services.NewIngestService(loaders.NewRegistry(), split, embedder, vectorstore, log)

	return NewServer(ingest, vectorstore, retriever, chat, log)
}

func doJSON(t *testing.T, srv *Server, method, path, tenant string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func uploadFile(t *testing.T, srv *Server, tenant, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rag/ingest/file", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-Tenant-ID", tenant)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(t, &stubChatModel{answer: "hi"})

	rec := doJSON(t, srv, http.MethodGet, "/health", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body["providers"], "openai")
}

func TestMissingTenantIsUnauthorized(t *testing.T) {
	srv := newTestServer(t, &stubChatModel{answer: "hi"})

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/rag/search"},
		{http.MethodPost, "/api/v1/rag/chat"},
		{http.MethodGet, "/api/v1/rag/documents"},
		{http.MethodDelete, "/api/v1/rag/documents/some-id"},
	} {
		rec := doJSON(t, srv, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestIngestFileAndList(t *testing.T) {
	srv := newTestServer(t, &stubChatModel{answer: "hi"})

	rec := uploadFile(t, srv, "tenant-a", "notes.txt", "Renewal terms run for twelve months.")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created ingestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.DocumentID)
	assert.Equal(t, "notes.txt", created.Name)
	assert.Equal(t, 1, created.ChunksCreated)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/rag/documents", "tenant-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Documents []domain.Document `json:"documents"`
		Total     int               `json:"total"`
		Page      int               `json:"page"`
		PageSize  int               `json:"page_size"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Documents, 1)
	assert.Equal(t, created.DocumentID, listed.Documents[0].ID)
	assert.Equal(t, 1, listed.Total)
	assert.Equal(t, 1, listed.Page)
	assert.Equal(t, 20, listed.PageSize)
}

func TestIngestUnsupportedExtension(t *testing.T) {
	srv := newTestServer(t, &stubChatModel{answer: "hi"})

	rec := uploadFile(t, srv, "tenant-a", "photo.png", "binary")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDocumentsIsTenantScoped(t *testing.T) {
	srv := newTestServer(t, &stubChatModel{answer: "hi"})

	rec := uploadFile(t, srv, "tenant-a", "a.txt", "document for tenant a")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/rag/documents", "tenant-b", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Documents []domain.Document `json:"documents"`
		Total     int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed.Documents)
	assert.Zero(t, listed.Total)
}

func TestListDocumentsPagingValidation(t *testing.T) {
	srv := newTestServer(t, &stubChatModel{answer: "hi"})

	for _, query := range []string{"page=0", "page=abc", "page_size=0", "page_size=101"} {
		rec := doJSON(t, srv, http.MethodGet, "/api/v1/rag/documents?"+query, "tenant-a", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestGetAndDeleteDocument(t *testing.T) {
	srv := newTestServer(t, &stubChatModel{answer: "hi"})

	rec := uploadFile(t, srv, "tenant-a", "a.txt", "short document")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ingestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/rag/documents/"+created.DocumentID, "tenant-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var doc domain.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "a.txt", doc.Name)

	// Another tenant cannot see or delete it.
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/rag/documents/"+created.DocumentID, "tenant-b", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/rag/documents/"+created.DocumentID, "tenant-b", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/rag/documents/"+created.DocumentID, "tenant-a", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/rag/documents/"+created.DocumentID, "tenant-a", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchReturnsIngestedContent(t *testing.T) {
	srv := newTestServer(t, &stubChatModel{answer: "hi"})

	rec := uploadFile(t, srv, "tenant-a", "contract.txt", "The renewal term is twelve months.")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/rag/search", "tenant-a",
		map[string]any{"query": "renewal term"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "The renewal term is twelve months.", body.Results[0].Content)
	assert.Equal(t, "contract.txt", body.Results[0].Source)
	assert.InDelta(t, 1.0, body.Results[0].Similarity, 1e-6)
}

func TestSearchEmptyQueryIsBadRequest(t *testing.T) {
	srv := newTestServer(t, &stubChatModel{answer: "hi"})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/rag/search", "tenant-a",
		map[string]any{"query": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatNonStreaming(t *testing.T) {
	srv := newTestServer(t, &stubChatModel{answer: "the answer"})

	rec := uploadFile(t, srv, "tenant-a", "a.txt", "useful context")
	require.Equal(t, http.StatusCreated, rec.Code)

	stream := false
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/rag/chat", "tenant-a",
		map[string]any{"message": "what is useful?", "stream": &stream})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var answer domain.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Equal(t, "the answer", answer.Content)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "a.txt", answer.Sources[0].Source)
}

// readSSE parses "data: {...}" frames into chat events.
func readSSE(t *testing.T, body io.Reader) []domain.ChatEvent {
	t.Helper()
	var events []domain.ChatEvent
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var event domain.ChatEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &event))
		events = append(events, event)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestChatStreamingEventOrder(t *testing.T) {
	srv := newTestServer(t, &stubChatModel{deltas: []string{"hello ", "world"}})

	rec := uploadFile(t, srv, "tenant-a", "a.txt", "useful context")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/rag/chat", "tenant-a",
		map[string]any{"message": "say hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := readSSE(t, rec.Body)
	require.Len(t, events, 4)
	assert.Equal(t, domain.EventSources, events[0].Type)
	require.Len(t, events[0].Sources, 1)
	assert.Equal(t, domain.EventContent, events[1].Type)
	assert.Equal(t, "hello ", events[1].Content)
	assert.Equal(t, domain.EventContent, events[2].Type)
	assert.Equal(t, "world", events[2].Content)
	assert.Equal(t, domain.EventDone, events[3].Type)
}

func TestChatStreamingMidFailure(t *testing.T) {
	srv := newTestServer(t, &stubChatModel{
		deltas: []string{"partial"},
		midErr: fmt.Errorf("provider exploded"),
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/rag/chat", "tenant-a",
		map[string]any{"message": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	events := readSSE(t, rec.Body)
	require.NotEmpty(t, events)
	assert.Equal(t, domain.EventSources, events[0].Type)
	last := events[len(events)-1]
	assert.Equal(t, domain.EventError, last.Type)
	assert.Contains(t, last.Error, "provider exploded")
}

func TestChatUnknownProvider(t *testing.T) {
	srv := newTestServer(t, &stubChatModel{answer: "hi"})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/rag/chat", "tenant-a",
		map[string]any{"message": "hello", "provider": "llama-at-home"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestURL(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><head><title>Docs</title></head><body><p>Hosted documentation body.</p></body></html>")
	}))
	defer upstream.Close()

	srv := newTestServer(t, &stubChatModel{answer: "hi"})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/rag/ingest/url", "tenant-a",
		map[string]any{"url": upstream.URL})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created ingestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, upstream.URL, created.Name)
	assert.Equal(t, 1, created.ChunksCreated)
}
