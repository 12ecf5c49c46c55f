// Package similarity provides the cosine ranking routine shared by the
// native vector index and the client-side fallback search, so both
// paths rank identically by construction.
package similarity

import (
	"math"
	"sort"

	"github.com/scribehq/scribe/internal/core/domain"
)

// Cosine calculates cosine similarity between two vectors.
// Mismatched or zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores each chunk against the query vector, keeps scores at or
// above the threshold, sorts descending (stably, so equal scores keep
// input order) and truncates to topK.
func Rank(query []float32, chunks []domain.Chunk, threshold float64, topK int) []domain.ScoredChunk {
	results := make([]domain.ScoredChunk, 0, len(chunks))

	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		score := Cosine(query, chunk.Embedding)
		if score >= threshold {
			results = append(results, domain.ScoredChunk{Chunk: chunk, Similarity: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return results
}
