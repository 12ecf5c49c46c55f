// Package keyword provides lexical search backends for hybrid search.
package keyword

import (
	"context"

	"github.com/scribehq/scribe/internal/core/domain"
	"github.com/scribehq/scribe/internal/core/ports/driven"
)

// Ensure Noop implements the interface.
var _ driven.KeywordSearcher = (*Noop)(nil)

// Noop is a keyword searcher that never matches. Hybrid search over it
// degrades to semantic ordering while keeping the rank-fusion contract
// intact, so a full-text backend can be swapped in without touching
// callers.
type Noop struct{}

// NewNoop creates a no-result keyword searcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Search returns no results.
func (*Noop) Search(context.Context, string, string, int) ([]domain.RetrievedChunk, error) {
	return nil, nil
}
