package hashing

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"

	"jobis/internal/embedding"
)

const defaultDimension = 512

// Embedder is a local feature-hashing embedder.
// Word tokens and the character bigrams inside them are hashed into a fixed
// number of buckets, so no corpus preparation is needed and the same text
// always maps to the same vector in every process.
type Embedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewEmbedder creates a hashing embedder. Dimension defaults to 512.
func NewEmbedder(opts ...embedding.Option) *Embedder {
	options := embedding.NewOptions(opts...)
	dim := options.Dimension
	if dim <= 0 {
		dim = defaultDimension
	}
	return &Embedder{
		dimension:    dim,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Name encodes the algorithm version and dimension.
func (e *Embedder) Name() string { return fmt.Sprintf("hashing-v1-%d", e.dimension) }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the hashed, sub-linearly weighted bag of features for text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	counts := make(map[string]int)
	for _, tok := range e.tokenize(text) {
		counts["w:"+tok]++
		runes := []rune(tok)
		for i := 0; i+1 < len(runes); i++ {
			counts["b:"+string(runes[i:i+2])]++
		}
	}
	vec := make([]float32, e.dimension)
	for feature, n := range counts {
		h := xxhash.Sum64String(feature)
		idx := int(h % uint64(e.dimension))
		w := float32(1 + math.Log(float64(n)))
		// top bit picks the sign so collisions cancel out on average
		if h>>63 == 1 {
			w = -w
		}
		vec[idx] += w
	}
	return embedding.Normalize(vec), nil
}

func (e *Embedder) tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := e.tokenPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "so", "such", "into", "about", "can", "will", "just", "should", "now",
		"그리고", "하지만", "그래서", "또한", "및", "등", "이", "그", "저", "것", "수", "있습니다", "합니다",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
