package embedding

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder records calls and returns deterministic vectors.
type fakeEmbedder struct {
	calls      int
	seenTexts  [][]string
	failAfter  int // fail on call number failAfter (1-based), 0 = never
	dimensions int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.seenTexts = append(f.seenTexts, texts)
	if f.failAfter > 0 && f.calls >= f.failAfter {
		return nil, errors.New("provider unavailable")
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = []float32{float32(len(text)), 1}
	}
	return vecs, nil
}

func (f *fakeEmbedder) Dimensions() int {
	if f.dimensions > 0 {
		return f.dimensions
	}
	return 2
}

func (f *fakeEmbedder) ModelName() string { return "fake-model" }

func TestCached_SecondCallHitsCache(t *testing.T) {
	fake := &fakeEmbedder{}
	cached, err := NewCached(fake)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := cached.Embed(ctx, "hello world")
	require.NoError(t, err)

	second, err := cached.Embed(ctx, "hello world")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.calls)
}

func TestCached_WhitespaceVariantsShareEntry(t *testing.T) {
	fake := &fakeEmbedder{}
	cached, err := NewCached(fake)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = cached.Embed(ctx, "hello   world")
	require.NoError(t, err)

	_, err = cached.Embed(ctx, "hello\n\tworld ")
	require.NoError(t, err)

	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, 1, cached.Len())
}

func TestCached_BatchMixedHitsAndMisses(t *testing.T) {
	fake := &fakeEmbedder{}
	cached, err := NewCached(fake)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = cached.Embed(ctx, "alpha")
	require.NoError(t, err)
	require.Equal(t, 1, fake.calls)

	vecs, err := cached.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.NotNil(t, v)
	}

	// One extra upstream call carrying only the two misses.
	assert.Equal(t, 2, fake.calls)
	assert.Equal(t, []string{"beta", "gamma"}, fake.seenTexts[1])
}

func TestCached_PreservesInputOrder(t *testing.T) {
	fake := &fakeEmbedder{}
	cached, err := NewCached(fake)
	require.NoError(t, err)

	texts := []string{"aa", "bbbb", "cc", "aa"}
	vecs, err := cached.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 4)

	assert.Equal(t, []float32{2, 1}, vecs[0])
	assert.Equal(t, []float32{4, 1}, vecs[1])
	assert.Equal(t, []float32{2, 1}, vecs[2])
	assert.Equal(t, vecs[0], vecs[3])
}

func TestCached_DuplicatesEmbedOnce(t *testing.T) {
	fake := &fakeEmbedder{}
	cached, err := NewCached(fake)
	require.NoError(t, err)

	_, err = cached.EmbedBatch(context.Background(), []string{"same", "same", "same"})
	require.NoError(t, err)

	require.Equal(t, 1, fake.calls)
	assert.Equal(t, []string{"same"}, fake.seenTexts[0])
}

func TestCached_SplitsLargeMissSets(t *testing.T) {
	fake := &fakeEmbedder{}
	cached, err := NewCached(fake, WithBatchSize(2))
	require.NoError(t, err)

	_, err = cached.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)

	assert.Equal(t, 3, fake.calls)
	assert.Len(t, fake.seenTexts[0], 2)
	assert.Len(t, fake.seenTexts[1], 2)
	assert.Len(t, fake.seenTexts[2], 1)
}

func TestCached_UpstreamFailureKeepsEarlierEntries(t *testing.T) {
	fake := &fakeEmbedder{failAfter: 2}
	cached, err := NewCached(fake, WithBatchSize(2))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = cached.EmbedBatch(ctx, []string{"a", "b", "c"})
	require.Error(t, err)

	// The first batch was cached before the failure.
	assert.Equal(t, 2, cached.Len())

	fake.failAfter = 0
	vecs, err := cached.EmbedBatch(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, 2, fake.calls, "retry of cached texts must not call upstream")
}

func TestCached_EvictsBeyondCapacity(t *testing.T) {
	fake := &fakeEmbedder{}
	cached, err := NewCached(fake, WithCacheSize(2))
	require.NoError(t, err)

	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		_, err := cached.Embed(ctx, text)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, cached.Len())

	// "one" was evicted, so it embeds again.
	_, err = cached.Embed(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, 4, fake.calls)
}

func TestCached_TruncatesOversizedInput(t *testing.T) {
	fake := &fakeEmbedder{}
	cached, err := NewCached(fake)
	require.NoError(t, err)

	huge := strings.Repeat("x", maxInputChars+500)
	_, err = cached.Embed(context.Background(), huge)
	require.NoError(t, err)

	require.Len(t, fake.seenTexts, 1)
	assert.Len(t, fake.seenTexts[0][0], maxInputChars)
}

func TestCached_EmptyBatch(t *testing.T) {
	fake := &fakeEmbedder{}
	cached, err := NewCached(fake)
	require.NoError(t, err)

	vecs, err := cached.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
	assert.Equal(t, 0, fake.calls)
}

func TestNewCached_RejectsBadConfig(t *testing.T) {
	_, err := NewCached(&fakeEmbedder{}, WithCacheSize(0))
	assert.Error(t, err)

	_, err = NewCached(&fakeEmbedder{}, WithBatchSize(-1))
	assert.Error(t, err)
}
