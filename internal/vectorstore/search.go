package vectorstore

import (
	"sort"

	"jobis/internal/domain"
	"jobis/internal/embedding"
)

// Scored pairs a search result with the insertion order it came from.
type Scored struct {
	domain.SearchResult
	Ord int
}

// BruteForce scores every entry against vector (entries are assumed
// L2-normalized, so cosine distance is 1 - dot) and keeps the k nearest.
func BruteForce(entries []Entry, vector []float32, k int) []domain.SearchResult {
	scored := make([]Scored, len(entries))
	for i, e := range entries {
		scored[i] = Scored{
			SearchResult: domain.SearchResult{
				Record:   e.Record,
				Distance: 1 - embedding.Dot(e.Vector, vector),
				Vector:   e.Vector,
			},
			Ord: e.Ord,
		}
	}
	return Rank(scored, k)
}

// Rank orders results by ascending distance, ties by insertion order, and
// truncates to k.
func Rank(scored []Scored, k int) []domain.SearchResult {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Distance != scored[j].Distance {
			return scored[i].Distance < scored[j].Distance
		}
		return scored[i].Ord < scored[j].Ord
	})
	if k > len(scored) {
		k = len(scored)
	}
	out := make([]domain.SearchResult, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, scored[i].SearchResult)
	}
	return out
}
