// Package vector provides shared vector arithmetic used across the embedding,
// retrieval, and workflow-memory layers.
package vector

import "math"

// NormalizeL2 normalizes a vector to unit length in place. Embedding providers
// are expected to return normalized vectors already, but callers that accept
// externally supplied vectors (e.g. imported chunks) should still normalize,
// since cosine similarity via pgvector's <=> operator assumes unit vectors
// for the dot-product shortcut to stay numerically comparable across rows.
func NormalizeL2(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	magnitude := math.Sqrt(sumSquares)
	for i := range v {
		v[i] = float32(float64(v[i]) / magnitude)
	}
}

// CosineSimilarity returns the cosine similarity of two equal-length vectors,
// in [-1, 1], for in-process scoring where round-tripping through the
// database isn't warranted. It backs embedding.Cosine; workflow-memory
// similarity for the retrieval boost is computed in SQL by pgvector.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
