package domain

// Citation attributes a retrieved chunk to its source document.
type Citation struct {
	// Source is the document display name, or "Unknown" when the
	// document could not be resolved.
	Source string `json:"source"`

	// Page is the page/section label: the chunk's page metadata when
	// present, falling back to the chunk index, then "N/A".
	Page string `json:"page"`

	// DocumentID is the source document.
	DocumentID string `json:"document_id"`
}

// RetrievedChunk is a search hit enriched with citation data.
// It is derived at query time and never persisted.
type RetrievedChunk struct {
	// Content is the chunk text.
	Content string `json:"content"`

	// Similarity is the cosine similarity to the query (0-1).
	Similarity float64 `json:"similarity"`

	// Citation attributes the chunk to its document.
	Citation Citation `json:"citation"`

	// Metadata is the raw chunk metadata.
	Metadata map[string]any `json:"metadata"`
}

// ScoredChunk is a raw similarity hit before citation enrichment.
type ScoredChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Similarity is the cosine similarity to the query (0-1).
	Similarity float64
}
