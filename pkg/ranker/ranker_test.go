package ranker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/snapthinkllm/snapthinkllm/pkg/ranker"
)

func TestCosineSimilarity_Identity(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5}
	assert.InDelta(t, 1.0, ranker.CosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarity_ZeroVectorGuard(t *testing.T) {
	v := []float32{1, 2, 3}
	zero := []float32{0, 0, 0}

	assert.Equal(t, 0.0, ranker.CosineSimilarity(v, zero))
	assert.Equal(t, 0.0, ranker.CosineSimilarity(zero, v))
	assert.Equal(t, 0.0, ranker.CosineSimilarity(zero, zero))
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, ranker.CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestCosineSimilarity_Opposite(t *testing.T) {
	assert.InDelta(t, -1.0, ranker.CosineSimilarity([]float32{1, 1}, []float32{-1, -1}), 1e-9)
}

func TestRank_EmptyCorpus(t *testing.T) {
	assert.Nil(t, ranker.Rank([]float32{1, 0}, nil, 5))
}

func TestRank_SortedDescendingAndTruncated(t *testing.T) {
	query := []float32{1, 0}
	corpus := []ranker.Entry{
		{Vector: []float32{0, 1}, Chunk: "orthogonal", Index: 0},
		{Vector: []float32{1, 0}, Chunk: "aligned", Index: 1},
		{Vector: []float32{1, 1}, Chunk: "diagonal", Index: 2},
	}

	results := ranker.Rank(query, corpus, 2)
	require.Len(t, results, 2)
	assert.Equal(t, "aligned", results[0].Chunk)
	assert.Equal(t, "diagonal", results[1].Chunk)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestRank_StableTieBreak(t *testing.T) {
	query := []float32{1, 0}
	// Same direction, different magnitude: identical cosine scores.
	corpus := []ranker.Entry{
		{Vector: []float32{2, 0}, Chunk: "first", Index: 0},
		{Vector: []float32{5, 0}, Chunk: "second", Index: 1},
		{Vector: []float32{1, 0}, Chunk: "third", Index: 2},
	}

	results := ranker.Rank(query, corpus, 3)
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Chunk)
	assert.Equal(t, "second", results[1].Chunk)
	assert.Equal(t, "third", results[2].Chunk)
}

func TestRank_KLargerThanCorpus(t *testing.T) {
	results := ranker.Rank([]float32{1}, []ranker.Entry{{Vector: []float32{1}}}, 10)
	assert.Len(t, results, 1)
}
