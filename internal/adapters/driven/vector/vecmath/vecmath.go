// Package vecmath provides the similarity maths shared by the local vector indexes.
package vecmath

import (
	"math"
	"sort"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Mismatched lengths or zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK sorts matches by descending score, ties broken by ID, and keeps at most k.
func TopK(matches []domain.RetrievalMatch, k int) []domain.RetrievalMatch {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if k >= 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
