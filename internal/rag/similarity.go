package rag

import (
	"math"
	"sort"
)

const DefaultTopK = 5

// CosineSimilarity returns dot(a,b)/(|a||b|). A zero vector has similarity 0 with
// anything, and so do vectors of different dimension.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores every chunk against query and returns the best topK, highest first.
// Equal scores keep their knowledge-base order.
func Rank(query []float32, chunks []VectorChunk, topK int) []ScoredChunk {
	if topK <= 0 {
		topK = DefaultTopK
	}
	scored := make([]ScoredChunk, len(chunks))
	for i := range chunks {
		scored[i] = ScoredChunk{Chunk: chunks[i], Score: CosineSimilarity(query, chunks[i].Embedding)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK]
}
