package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribehq/scribe/internal/core/domain"
)

func TestCosine_IdenticalVectors(t *testing.T) {
	v := []float32{0.5, 0.5, 0.5}
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-9)
}

func TestCosine_OrthogonalVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	assert.InDelta(t, 0.0, Cosine(a, b), 1e-9)
}

func TestCosine_MismatchedLengths(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
}

func TestCosine_ZeroVector(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestRank_ThresholdAndTopK(t *testing.T) {
	query := []float32{1, 0}

	// Similarities against query: 0.95, 0.89, 0.81, 0.50, 0.30.
	chunks := []domain.Chunk{
		chunkAt(t, "a", 0.95),
		chunkAt(t, "b", 0.89),
		chunkAt(t, "c", 0.81),
		chunkAt(t, "d", 0.50),
		chunkAt(t, "e", 0.30),
	}

	results := Rank(query, chunks, 0.7, 2)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, "b", results[1].Chunk.ID)
	assert.InDelta(t, 0.95, results[0].Similarity, 1e-6)
	assert.InDelta(t, 0.89, results[1].Similarity, 1e-6)
}

func TestRank_SkipsChunksWithoutEmbedding(t *testing.T) {
	query := []float32{1, 0}
	chunks := []domain.Chunk{
		{ID: "none"},
		chunkAt(t, "hit", 0.9),
	}

	results := Rank(query, chunks, 0.0, 10)
	require.Len(t, results, 1)
	assert.Equal(t, "hit", results[0].Chunk.ID)
}

func TestRank_DescendingOrder(t *testing.T) {
	query := []float32{1, 0}
	chunks := []domain.Chunk{
		chunkAt(t, "low", 0.4),
		chunkAt(t, "high", 0.99),
		chunkAt(t, "mid", 0.7),
	}

	results := Rank(query, chunks, 0.0, 0)
	require.Len(t, results, 3)
	assert.Equal(t, "high", results[0].Chunk.ID)
	assert.Equal(t, "mid", results[1].Chunk.ID)
	assert.Equal(t, "low", results[2].Chunk.ID)
}

// chunkAt builds a unit-length 2D embedding whose cosine similarity to
// the query vector (1, 0) equals sim.
func chunkAt(t *testing.T, id string, sim float64) domain.Chunk {
	t.Helper()
	y := 1.0 - sim*sim
	if y < 0 {
		y = 0
	}
	return domain.Chunk{
		ID:        id,
		Embedding: []float32{float32(sim), float32(math.Sqrt(y))},
	}
}
