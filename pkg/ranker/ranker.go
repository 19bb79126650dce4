package ranker

import (
	"math"
	"sort"
)

// Entry is one corpus item: a vector plus the payload handed back on a hit.
type Entry struct {
	Vector   []float32
	Chunk    string
	FileName string
	Index    int
}

// Result is a ranked corpus entry.
type Result struct {
	Entry
	Score float64
}

// CosineSimilarity measures directional similarity between two vectors.
// A zero vector has no defined direction, so either norm being zero yields
// 0 rather than NaN. Vectors must come from the same embedding model.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores every corpus entry against the query and returns the top k,
// sorted by descending score. The sort is stable, so original corpus order
// breaks ties. An empty corpus yields nil.
func Rank(query []float32, corpus []Entry, k int) []Result {
	if len(corpus) == 0 || k <= 0 {
		return nil
	}

	results := make([]Result, 0, len(corpus))
	for _, e := range corpus {
		results = append(results, Result{
			Entry: e,
			Score: CosineSimilarity(query, e.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}
