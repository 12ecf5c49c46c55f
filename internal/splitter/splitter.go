// Package splitter provides recursive character text splitting with overlap.
package splitter

import (
	"fmt"
	"strings"

	"github.com/scribehq/scribe/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// DefaultSeparators is the separator priority order: paragraph break,
// line break, sentence boundary, word boundary, character boundary.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// TextChunk is one split piece with its position metadata.
type TextChunk struct {
	// Content is the chunk text.
	Content string

	// Index is the chunk's ordinal position, 0..Total-1.
	Index int

	// Total is the number of chunks produced from the text.
	Total int

	// Length is len(Content).
	Length int

	// Metadata is the source metadata augmented with chunk_index,
	// total_chunks and chunk_length.
	Metadata map[string]any
}

// Splitter divides text at the highest-priority separator that yields
// pieces within the chunk size, re-splitting oversized pieces with the
// next separator. Adjacent chunks share up to the overlap in characters.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the overlap between chunks in characters.
func WithChunkOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.chunkOverlap = overlap
		}
	}
}

// WithSeparators sets the separator priority list.
func WithSeparators(separators []string) Option {
	return func(s *Splitter) {
		if len(separators) > 0 {
			s.separators = separators
		}
	}
}

// New creates a splitter. It fails when the overlap is not smaller than
// the chunk size.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		separators:   DefaultSeparators,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.chunkOverlap >= s.chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			domain.ErrInvalidInput, s.chunkOverlap, s.chunkSize)
	}

	return s, nil
}

// ChunkSize returns the configured chunk size.
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// Split divides text into ordered pieces. Empty input yields no chunks.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	return s.splitRecursive(text, s.separators)
}

// Chunks splits text and wraps each piece with position metadata.
// The source metadata is copied onto every chunk.
func (s *Splitter) Chunks(text string, metadata map[string]any) []TextChunk {
	pieces := s.Split(text)
	chunks := make([]TextChunk, len(pieces))

	for i, piece := range pieces {
		meta := make(map[string]any, len(metadata)+3)
		for k, v := range metadata {
			meta[k] = v
		}
		meta["chunk_index"] = i
		meta["total_chunks"] = len(pieces)
		meta["chunk_length"] = len(piece)

		chunks[i] = TextChunk{
			Content:  piece,
			Index:    i,
			Total:    len(pieces),
			Length:   len(piece),
			Metadata: meta,
		}
	}

	return chunks
}

// OptimalChunkSize recommends a chunk size for the given text: smaller
// chunks for short texts, up to double the configured size for long
// documents. Used for pre-flight estimation, not by Split itself.
func (s *Splitter) OptimalChunkSize(text string) int {
	return s.OptimalChunkSizeFor(len(text))
}

// OptimalChunkSizeFor is OptimalChunkSize for a known byte length.
func (s *Splitter) OptimalChunkSizeFor(length int) int {
	if length < 1000 {
		return 500
	}
	if length < 10000 {
		return s.chunkSize
	}

	size := s.chunkSize * 2
	if size > 2000 {
		size = 2000
	}
	return size
}

// splitRecursive divides text at the best separator for this level and
// re-splits any piece that is still too long with the remaining
// separators.
func (s *Splitter) splitRecursive(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string

	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	splits := splitOn(text, separator)

	var final []string
	var good []string

	for _, piece := range splits {
		if len(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}

		if len(good) > 0 {
			final = append(final, s.mergeSplits(good, separator)...)
			good = nil
		}

		if len(next) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.splitRecursive(piece, next)...)
		}
	}

	if len(good) > 0 {
		final = append(final, s.mergeSplits(good, separator)...)
	}

	return final
}

// mergeSplits greedily packs pieces into chunks up to the chunk size,
// carrying up to chunkOverlap characters from the end of the previous
// chunk into the next one.
func (s *Splitter) mergeSplits(splits []string, separator string) []string {
	sepLen := len(separator)

	var docs []string
	var current []string
	total := 0

	for _, piece := range splits {
		pieceLen := len(piece)

		if total+pieceLen+sepIf(sepLen, len(current) > 0) > s.chunkSize && len(current) > 0 {
			if doc := joinPieces(current, separator); doc != "" {
				docs = append(docs, doc)
			}

			// Drop leading pieces until the carried tail fits within
			// the overlap and leaves room for the next piece.
			for total > s.chunkOverlap ||
				(total+pieceLen+sepIf(sepLen, len(current) > 0) > s.chunkSize && total > 0) {
				total -= len(current[0]) + sepIf(sepLen, len(current) > 1)
				current = current[1:]
			}
		}

		current = append(current, piece)
		total += pieceLen + sepIf(sepLen, len(current) > 1)
	}

	if doc := joinPieces(current, separator); doc != "" {
		docs = append(docs, doc)
	}

	return docs
}

// splitOn divides text by the separator; the empty separator splits
// into individual characters.
func splitOn(text, separator string) []string {
	var parts []string
	if separator == "" {
		for _, r := range text {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(text, separator)
	}

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return kept
}

func joinPieces(pieces []string, separator string) string {
	return strings.TrimSpace(strings.Join(pieces, separator))
}

func sepIf(sepLen int, cond bool) int {
	if cond {
		return sepLen
	}
	return 0
}
