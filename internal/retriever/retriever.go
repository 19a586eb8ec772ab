package retriever

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"jobis/internal/domain"
	"jobis/internal/embedding"
)

// Searcher is the part of the document store the retriever needs.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
}

type Retriever struct {
	searcher Searcher
	options  Options
	logger   *zap.Logger
}

func New(searcher Searcher, logger *zap.Logger, opts ...Option) (*Retriever, error) {
	options := NewOptions(opts...)
	if _, err := ParsePolicy(string(options.Policy)); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{searcher: searcher, options: options, logger: logger}, nil
}

func (r *Retriever) Options() Options { return r.options }

// Fetch returns the records selected for query, most relevant first.
func (r *Retriever) Fetch(ctx context.Context, query string) ([]domain.Record, error) {
	scored, err := r.FetchScored(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Record, len(scored))
	for i, s := range scored {
		out[i] = s.Record
	}
	return out, nil
}

// FetchScored is Fetch keeping the query distance of every record.
func (r *Retriever) FetchScored(ctx context.Context, query string) ([]domain.SearchResult, error) {
	start := time.Now()
	n := r.options.K
	if r.options.Policy == PolicyMMR {
		n = r.options.FetchK
	}
	candidates, err := r.searcher.SimilaritySearch(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	selected := candidates
	if r.options.Policy == PolicyMMR {
		selected = MMR(candidates, r.options.K, r.options.LambdaMult)
	} else if len(selected) > r.options.K {
		selected = selected[:r.options.K]
	}

	r.logger.Debug("retrieved",
		zap.String("policy", string(r.options.Policy)),
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(selected)),
		zap.Duration("took", time.Since(start)))
	return selected, nil
}

// MMR greedily picks k of candidates maximising
// lambda*relevance - (1-lambda)*max similarity to the records already picked.
// candidates must be in ascending distance order and carry their vectors.
// Ties keep the earlier, more relevant candidate.
func MMR(candidates []domain.SearchResult, k int, lambda float64) []domain.SearchResult {
	if k <= 0 {
		return []domain.SearchResult{}
	}
	if len(candidates) <= k {
		return candidates
	}
	lambda = min(max(lambda, 0), 1)

	remaining := make([]int, len(candidates))
	for i := range remaining {
		remaining[i] = i
	}
	// Most relevant candidate always goes first.
	selected := make([]domain.SearchResult, 0, k)
	selected = append(selected, candidates[0])
	remaining = remaining[1:]

	for len(selected) < k && len(remaining) > 0 {
		// NaN scores (zero vectors in the backend) never compare greater,
		// so fall back to the most relevant remaining candidate.
		bestPos := 0
		best := math.Inf(-1)
		for pos, idx := range remaining {
			cand := candidates[idx]
			maxSim := math.Inf(-1)
			for _, sel := range selected {
				if sim := embedding.Dot(cand.Vector, sel.Vector); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*cand.Similarity() - (1-lambda)*maxSim
			if score > best {
				best = score
				bestPos = pos
			}
		}
		selected = append(selected, candidates[remaining[bestPos]])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}
	return selected
}
