package retriever

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobis/internal/domain"
	"jobis/internal/embedding"
)

type fakeSearcher struct {
	results  []domain.SearchResult
	err      error
	requests []int
}

func (f *fakeSearcher) SimilaritySearch(_ context.Context, _ string, k int) ([]domain.SearchResult, error) {
	f.requests = append(f.requests, k)
	if f.err != nil {
		return nil, f.err
	}
	if k > len(f.results) {
		k = len(f.results)
	}
	return f.results[:k], nil
}

// result builds a candidate whose vector lies at angle deg from the query
// direction (1, 0).
func result(id string, deg float64) domain.SearchResult {
	rad := deg * math.Pi / 180
	vec := []float32{float32(math.Cos(rad)), float32(math.Sin(rad))}
	return domain.SearchResult{
		Record:   domain.Record{Text: id, Metadata: domain.Metadata{RecordID: id, EntityName: id}},
		Distance: 1 - embedding.Dot(vec, []float32{1, 0}),
		Vector:   vec,
	}
}

func ids(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Record.Metadata.RecordID
	}
	return out
}

func ladder(n int) []domain.SearchResult {
	out := make([]domain.SearchResult, n)
	for i := range out {
		// Alternate sides so neighbours in rank are far apart in space.
		deg := float64(i+1) * 5
		if i%2 == 1 {
			deg = -deg
		}
		out[i] = result(fmt.Sprintf("d%d", i), deg)
	}
	return out
}

func TestNewOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want Options
	}{
		{
			name: "defaults",
			want: Options{Policy: PolicySimilarity, K: 5, FetchK: 20, LambdaMult: 0.5},
		},
		{
			name: "fetchK below k is clamped",
			opts: []Option{WithPolicy(PolicyMMR), WithK(8), WithFetchK(3)},
			want: Options{Policy: PolicyMMR, K: 8, FetchK: 8, LambdaMult: 0.5},
		},
		{
			name: "non-positive k falls back to default",
			opts: []Option{WithK(0), WithFetchK(1)},
			want: Options{Policy: PolicySimilarity, K: 5, FetchK: 5, LambdaMult: 0.5},
		},
		{
			name: "lambda clamped high",
			opts: []Option{WithLambdaMult(1.7)},
			want: Options{Policy: PolicySimilarity, K: 5, FetchK: 20, LambdaMult: 1},
		},
		{
			name: "lambda clamped low",
			opts: []Option{WithLambdaMult(-0.2)},
			want: Options{Policy: PolicySimilarity, K: 5, FetchK: 20, LambdaMult: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewOptions(tt.opts...))
		})
	}
}

func TestNew_UnknownPolicy(t *testing.T) {
	_, err := New(&fakeSearcher{}, nil, WithPolicy("random"))
	assert.Error(t, err)
}

func TestFetch_SimilarityReturnsTopK(t *testing.T) {
	s := &fakeSearcher{results: ladder(10)}
	r, err := New(s, nil, WithK(3))
	require.NoError(t, err)

	got, err := r.FetchScored(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"d0", "d1", "d2"}, ids(got))
	assert.Equal(t, []int{3}, s.requests)
}

func TestFetch_FewerThanK(t *testing.T) {
	for _, policy := range []Policy{PolicySimilarity, PolicyMMR} {
		t.Run(string(policy), func(t *testing.T) {
			s := &fakeSearcher{results: ladder(2)}
			r, err := New(s, nil, WithPolicy(policy), WithK(5))
			require.NoError(t, err)

			got, err := r.Fetch(context.Background(), "q")
			require.NoError(t, err)
			assert.Len(t, got, 2)
		})
	}
}

func TestFetch_MMROverFetches(t *testing.T) {
	s := &fakeSearcher{results: ladder(30)}
	r, err := New(s, nil, WithPolicy(PolicyMMR), WithK(4), WithFetchK(12))
	require.NoError(t, err)

	got, err := r.Fetch(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, []int{12}, s.requests)
}

func TestFetch_PropagatesStoreErrors(t *testing.T) {
	r, err := New(&fakeSearcher{err: domain.ErrStoreNotFound}, nil)
	require.NoError(t, err)

	_, err = r.Fetch(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
}

func TestMMR_LambdaOneIsTopK(t *testing.T) {
	candidates := ladder(10)
	got := MMR(candidates, 4, 1)
	assert.Equal(t, ids(candidates[:4]), ids(got))
}

func TestMMR_FetchKEqualsKIsTopK(t *testing.T) {
	candidates := ladder(6)
	for _, lambda := range []float64{0, 0.3, 0.5, 1} {
		got := MMR(candidates[:3], 3, lambda)
		assert.ElementsMatch(t, ids(candidates[:3]), ids(got), "lambda %v", lambda)
	}
}

func TestMMR_PureDiversityPrefersDistinctRecord(t *testing.T) {
	candidates := []domain.SearchResult{
		result("original", 0),
		result("near-duplicate", 2),
		result("distinct", 60),
	}
	got := MMR(candidates, 2, 0)
	assert.Equal(t, []string{"original", "distinct"}, ids(got))

	// With full relevance weight the near duplicate wins.
	got = MMR(candidates, 2, 1)
	assert.Equal(t, []string{"original", "near-duplicate"}, ids(got))
}

func TestMMR_NonPositiveK(t *testing.T) {
	assert.Empty(t, MMR(ladder(3), 0, 0.5))
}

func TestMMR_UndefinedDistancesKeepStoreOrder(t *testing.T) {
	candidates := []domain.SearchResult{
		{Record: domain.Record{Metadata: domain.Metadata{RecordID: "a"}}, Distance: math.NaN(), Vector: []float32{0, 0}},
		{Record: domain.Record{Metadata: domain.Metadata{RecordID: "b"}}, Distance: math.NaN(), Vector: []float32{0, 0}},
		{Record: domain.Record{Metadata: domain.Metadata{RecordID: "c"}}, Distance: math.NaN(), Vector: []float32{0, 0}},
	}
	var got []domain.SearchResult
	require.NotPanics(t, func() { got = MMR(candidates, 2, 0.5) })
	assert.Equal(t, []string{"a", "b"}, ids(got))
}
