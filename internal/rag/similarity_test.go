package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity_Identity(t *testing.T) {
	for _, v := range [][]float32{{1, 0}, {0.3, -2, 5}, {-1, -1, -1, -1}} {
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 2, 3}, zero))
	assert.Equal(t, 0.0, CosineSimilarity(zero, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, CosineSimilarity(zero, zero))
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	pairs := [][2][]float32{
		{{1, 2, 3}, {4, 5, 6}},
		{{1, 0}, {0, 1}},
		{{-1, 0.5}, {2, 2}},
	}
	for _, p := range pairs {
		assert.Equal(t, CosineSimilarity(p[0], p[1]), CosineSimilarity(p[1], p[0]))
	}
}

func TestCosineSimilarity_OppositeAndOrthogonal(t *testing.T) {
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-3, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}

func TestRank_TopOneScenario(t *testing.T) {
	kb := []VectorChunk{
		{ID: "1", Embedding: []float32{1, 0}},
		{ID: "2", Embedding: []float32{0, 1}},
	}
	got := Rank([]float32{1, 0}, kb, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].Chunk.ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestRank_DescendingAndBounded(t *testing.T) {
	kb := []VectorChunk{
		{ID: "far", Embedding: []float32{-1, 0}},
		{ID: "mid", Embedding: []float32{1, 1}},
		{ID: "near", Embedding: []float32{1, 0.1}},
		{ID: "orth", Embedding: []float32{0, 1}},
	}
	got := Rank([]float32{1, 0}, kb, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"near", "mid", "orth"}, ids(got))
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}

	all := Rank([]float32{1, 0}, kb, 10)
	assert.Len(t, all, len(kb))
}

func TestRank_TiesKeepInsertionOrder(t *testing.T) {
	kb := []VectorChunk{
		{ID: "a", Embedding: []float32{2, 0}},
		{ID: "b", Embedding: []float32{1, 0}},
		{ID: "c", Embedding: []float32{5, 0}},
	}
	got := Rank([]float32{1, 0}, kb, 3)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
}

func TestRank_DefaultTopK(t *testing.T) {
	kb := make([]VectorChunk, 8)
	for i := range kb {
		kb[i] = VectorChunk{Embedding: []float32{float32(i + 1), 1}}
	}
	assert.Len(t, Rank([]float32{1, 0}, kb, 0), DefaultTopK)
}

func ids(scored []ScoredChunk) []string {
	out := make([]string, len(scored))
	for i := range scored {
		out[i] = scored[i].Chunk.ID
	}
	return out
}
