package loaders

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/scribehq/scribe/internal/core/domain"
)

// TextLoader handles plain text files.
type TextLoader struct{}

// Load decodes the content as UTF-8, falling back to Latin-1, and
// returns it as a single section.
func (*TextLoader) Load(content []byte, _ string) ([]domain.Section, error) {
	text := decodeText(content)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text document: %w", domain.ErrInvalidInput)
	}

	return []domain.Section{
		{
			Content:  text,
			Metadata: map[string]any{"page": 1},
		},
	}, nil
}

// decodeText interprets content as UTF-8 when valid, otherwise as
// Latin-1, which maps every byte to a rune and never fails.
func decodeText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}

	var sb strings.Builder
	sb.Grow(len(content))
	for _, b := range content {
		sb.WriteRune(rune(b))
	}
	return sb.String()
}
