package domain

import "time"

// Document represents an ingested document owned by a single tenant.
type Document struct {
	// ID is the unique identifier for the document.
	ID string `json:"id"`

	// TenantID is the owning tenant. Documents are never shared across tenants.
	TenantID string `json:"tenant_id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Source is the original location (filename, URL).
	Source string `json:"source"`

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is a bounded slice of a document's text, the unit of embedding
// and retrieval. A chunk's tenant always equals its parent document's tenant.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document. Chunks are cascade-deleted
	// with their document.
	DocumentID string

	// TenantID is the owning tenant.
	TenantID string

	// Content is the text content of this chunk.
	Content string

	// Metadata carries chunk_index, total_chunks, chunk_length and any
	// metadata copied from the source section (page, file_type, ...).
	Metadata map[string]any

	// Embedding is the vector representation for similarity search.
	Embedding []float32

	// CreatedAt is when the chunk was stored.
	CreatedAt time.Time
}

// ChunkIndex returns the chunk's ordinal position within its document,
// or -1 when the metadata is missing or malformed.
func (c Chunk) ChunkIndex() int {
	switch v := c.Metadata["chunk_index"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return -1
}

// Section is an ordered piece of a source document produced by a loader
// (a PDF page, an HTML section, a CSV row batch) before splitting.
type Section struct {
	// Content is the section text.
	Content string

	// Metadata describes the section (source, page, file_type, ...).
	Metadata map[string]any
}

// DocumentPage is one page of a tenant's document listing.
type DocumentPage struct {
	// Documents are the page contents, newest first.
	Documents []Document

	// Total is the tenant's total document count.
	Total int
}

// IngestResult summarises a completed ingestion.
type IngestResult struct {
	// DocumentID is the created document.
	DocumentID string

	// ChunksCreated is the number of chunks stored and indexed.
	ChunksCreated int
}
