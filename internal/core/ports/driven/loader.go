package driven

import (
	"context"

	"github.com/scribehq/scribe/internal/core/domain"
)

// IngestionLoader converts raw document bytes or a URL into ordered
// sections ready for splitting.
type IngestionLoader interface {
	// LoadFile parses content according to the filename's extension.
	// Returns domain.ErrUnsupportedType for unknown extensions.
	LoadFile(ctx context.Context, content []byte, filename string) ([]domain.Section, error)

	// LoadURL fetches a URL and parses the response body.
	LoadURL(ctx context.Context, url string) ([]domain.Section, error)

	// SupportsExtension reports whether a filename's extension can be ingested.
	SupportsExtension(filename string) bool
}
