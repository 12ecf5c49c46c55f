package driven

import (
	"context"

	"github.com/scribehq/scribe/internal/core/domain"
)

// KeywordSearcher is the lexical half of hybrid search. The default
// implementation returns no results; a full-text backend (e.g. FTS5)
// can be plugged in without touching the rank-fusion contract.
type KeywordSearcher interface {
	// Search returns chunks ranked by keyword relevance, best first.
	Search(ctx context.Context, tenantID, query string, topK int) ([]domain.RetrievedChunk, error)
}
