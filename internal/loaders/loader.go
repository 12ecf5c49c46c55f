// Package loaders converts raw document bytes and URLs into ordered
// sections ready for chunking. Each format has its own loader; the
// Registry dispatches on file extension or response content type.
package loaders

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.IngestionLoader = (*Registry)(nil)

// DefaultURLTimeout bounds URL fetches.
const DefaultURLTimeout = 30 * time.Second

// maxURLBodyBytes caps fetched response bodies at the same 10MB limit
// applied to uploads.
const maxURLBodyBytes = 10 * 1024 * 1024

// formatLoader parses one document format.
type formatLoader interface {
	Load(content []byte, source string) ([]domain.Section, error)
}

// Registry dispatches ingestion to format loaders.
type Registry struct {
	byExtension map[string]formatLoader
	client      *http.Client
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithHTTPClient overrides the URL fetch client.
func WithHTTPClient(client *http.Client) RegistryOption {
	return func(r *Registry) { r.client = client }
}

// NewRegistry creates a loader registry covering the supported formats:
// pdf, docx, txt, csv, md, html.
func NewRegistry(opts ...RegistryOption) *Registry {
	text := &TextLoader{}
	html := &HTMLLoader{}
	markdown := &MarkdownLoader{}

	r := &Registry{
		byExtension: map[string]formatLoader{
			".pdf":      &PDFLoader{},
			".docx":     &DOCXLoader{},
			".txt":      text,
			".csv":      &CSVLoader{},
			".md":       markdown,
			".markdown": markdown,
			".html":     html,
			".htm":      html,
		},
		client: &http.Client{Timeout: DefaultURLTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SupportsExtension reports whether a filename's extension can be ingested.
func (r *Registry) SupportsExtension(filename string) bool {
	_, ok := r.byExtension[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// LoadFile parses content according to the filename's extension.
func (r *Registry) LoadFile(_ context.Context, content []byte, filename string) ([]domain.Section, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	loader, ok := r.byExtension[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file format %q: %w", ext, domain.ErrUnsupportedType)
	}
	return loader.Load(content, filename)
}

// LoadURL fetches a URL and parses the body by content type. HTML is
// the default when the content type is missing or unrecognised.
func (r *Registry) LoadURL(ctx context.Context, url string) ([]domain.Section, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w: %w", domain.ErrInvalidInput, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching url: %w: %w", domain.ErrInvalidInput, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching url: status %d: %w", resp.StatusCode, domain.ErrInvalidInput)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxURLBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading url body: %w", err)
	}
	if len(body) > maxURLBodyBytes {
		return nil, fmt.Errorf("url body exceeds %dMB limit: %w",
			maxURLBodyBytes/(1024*1024), domain.ErrInvalidInput)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	var loader formatLoader
	switch {
	case strings.Contains(contentType, "text/plain"):
		loader = r.byExtension[".txt"]
	case strings.Contains(contentType, "application/pdf"):
		loader = r.byExtension[".pdf"]
	default:
		loader = r.byExtension[".html"]
	}

	return loader.Load(body, url)
}
