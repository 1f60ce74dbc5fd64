// Package retrieval scores corpus chunks against a query embedding.
package retrieval

import (
	"math"
	"sort"

	"portfolio-agent/internal/model"
)

// Scored pairs a chunk with its cosine similarity to the query.
type Scored struct {
	Chunk model.KnowledgeChunk
	Score float64
}

// Cosine returns dot(a, b) / (|a| * |b|) over the common prefix of a and b.
// A zero denominator is replaced by 1, so a zero vector scores its dot product.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		normA += va * va
		normB += vb * vb
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		denom = 1
	}
	return dot / denom
}

// Rank scores every chunk and returns at most k of them, best first. Ties keep
// corpus order.
func Rank(query []float32, chunks []model.KnowledgeChunk, k int) []Scored {
	if k <= 0 || len(chunks) == 0 {
		return nil
	}
	scored := make([]Scored, len(chunks))
	for i := range chunks {
		scored[i] = Scored{Chunk: chunks[i], Score: Cosine(query, chunks[i].Embedding)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}
