// Package embedding provides decorators around embedding services.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/scribehq/scribe/internal/core/ports/driven"
)

// Ensure Cached implements the interface.
var _ driven.EmbeddingService = (*Cached)(nil)

const (
	// DefaultCacheSize is the number of vectors held by the LRU cache.
	DefaultCacheSize = 4096

	// DefaultBatchSize is the maximum number of texts sent upstream in
	// one API call.
	DefaultBatchSize = 100

	// maxInputChars truncates oversized inputs before embedding so a
	// single huge chunk cannot blow the provider's token limit.
	maxInputChars = 32000
)

// Cached wraps an EmbeddingService with a content-addressed LRU cache.
// Two texts that differ only in whitespace share one cache entry and
// one upstream call.
type Cached struct {
	inner     driven.EmbeddingService
	cache     *lru.Cache[string, []float32]
	batchSize int
}

// CacheOption configures a Cached service.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	size      int
	batchSize int
}

// WithCacheSize sets the LRU capacity.
func WithCacheSize(size int) CacheOption {
	return func(c *cacheConfig) { c.size = size }
}

// WithBatchSize sets the upstream batch size.
func WithBatchSize(size int) CacheOption {
	return func(c *cacheConfig) { c.batchSize = size }
}

// NewCached wraps inner with an LRU embedding cache.
func NewCached(inner driven.EmbeddingService, opts ...CacheOption) (*Cached, error) {
	cfg := cacheConfig{
		size:      DefaultCacheSize,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.size <= 0 {
		return nil, fmt.Errorf("embedding: cache size must be positive, got %d", cfg.size)
	}
	if cfg.batchSize <= 0 {
		return nil, fmt.Errorf("embedding: batch size must be positive, got %d", cfg.batchSize)
	}

	cache, err := lru.New[string, []float32](cfg.size)
	if err != nil {
		return nil, fmt.Errorf("embedding: creating cache: %w", err)
	}

	return &Cached{
		inner:     inner,
		cache:     cache,
		batchSize: cfg.batchSize,
	}, nil
}

// normalize collapses all whitespace runs to single spaces and trims,
// then truncates to the provider input limit. Cache keys are computed
// over the normalized form, so formatting-only variants of a text hit
// the same entry.
func normalize(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if len(normalized) > maxInputChars {
		normalized = normalized[:maxInputChars]
	}
	return normalized
}

// cacheKey is the SHA-256 hex digest of the normalized text, scoped by
// the model name so switching models never serves stale vectors.
func (c *Cached) cacheKey(normalized string) string {
	sum := sha256.Sum256([]byte(c.inner.ModelName() + "\x00" + normalized))
	return hex.EncodeToString(sum[:])
}

// Embed returns the cached vector for text, or embeds and caches it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts, serving repeats from the cache and sending
// only misses upstream, batched. The result preserves input order.
// On upstream failure nothing is partially returned, but vectors cached
// before the failure stay cached.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))

	// Deduplicate misses: identical texts in one batch embed once.
	var missTexts []string
	missIndexes := make(map[string][]int)
	for i, text := range texts {
		key := c.cacheKey(normalize(text))
		if vec, ok := c.cache.Get(key); ok {
			results[i] = vec
			continue
		}
		if _, seen := missIndexes[key]; !seen {
			missTexts = append(missTexts, text)
		}
		missIndexes[key] = append(missIndexes[key], i)
	}

	for start := 0; start < len(missTexts); start += c.batchSize {
		end := min(start+c.batchSize, len(missTexts))
		batch := missTexts[start:end]

		normalized := make([]string, len(batch))
		for i, text := range batch {
			normalized[i] = normalize(text)
		}

		vectors, err := c.inner.EmbedBatch(ctx, normalized)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding: expected %d vectors, got %d", len(batch), len(vectors))
		}

		for i, vec := range vectors {
			key := c.cacheKey(normalized[i])
			c.cache.Add(key, vec)
			for _, idx := range missIndexes[key] {
				results[idx] = vec
			}
		}
	}

	return results, nil
}

// Dimensions returns the wrapped service's vector size.
func (c *Cached) Dimensions() int {
	return c.inner.Dimensions()
}

// ModelName returns the wrapped service's model name.
func (c *Cached) ModelName() string {
	return c.inner.ModelName()
}

// Len reports the number of cached vectors.
func (c *Cached) Len() int {
	return c.cache.Len()
}
