// Package vecmath holds the brute-force scoring shared by the embedded backends.
package vecmath

import (
	"math"
	"sort"

	"semstore/internal/domain"
)

// DefaultLimit is the number of hits returned by a search, matching Qdrant's default.
const DefaultLimit = 10

// Supported reports whether Score understands the metric.
func Supported(metric domain.Distance) bool {
	switch metric {
	case domain.Cosine, domain.Dot, domain.Euclid:
		return true
	}
	return false
}

// Score returns a similarity where higher is better.
// Euclid is reported as negated distance so that ordering stays descending.
func Score(metric domain.Distance, a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(-1)
	}
	switch metric {
	case domain.Dot:
		return dot(a, b)
	case domain.Euclid:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return -math.Sqrt(sum)
	default:
		return cosineSimilarity(a, b)
	}
}

// Rank sorts hits by score descending and truncates to limit.
func Rank(hits []domain.QueryHit, limit int) []domain.QueryHit {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
