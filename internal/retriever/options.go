package retriever

import "fmt"

// Policy selects how the k returned records are chosen.
type Policy string

const (
	PolicySimilarity Policy = "similarity"
	PolicyMMR        Policy = "mmr"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicySimilarity, PolicyMMR:
		return p, nil
	case "":
		return PolicySimilarity, nil
	default:
		return "", fmt.Errorf("unknown retrieval policy %q", s)
	}
}

const (
	DefaultK          = 5
	DefaultFetchK     = 20
	DefaultLambdaMult = 0.5
)

type Options struct {
	Policy     Policy
	K          int
	FetchK     int
	LambdaMult float64
}

type Option func(*Options)

func WithPolicy(p Policy) Option {
	return func(o *Options) {
		o.Policy = p
	}
}

func WithK(k int) Option {
	return func(o *Options) {
		o.K = k
	}
}

// WithFetchK sets the MMR candidate pool size. Values below k are raised to k.
func WithFetchK(n int) Option {
	return func(o *Options) {
		o.FetchK = n
	}
}

// WithLambdaMult sets the relevance/diversity trade-off, clamped to [0,1].
func WithLambdaMult(l float64) Option {
	return func(o *Options) {
		o.LambdaMult = min(max(l, 0), 1)
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Policy:     PolicySimilarity,
		K:          DefaultK,
		FetchK:     DefaultFetchK,
		LambdaMult: DefaultLambdaMult,
	}
	for _, fn := range opts {
		fn(&options)
	}
	if options.K <= 0 {
		options.K = DefaultK
	}
	if options.FetchK < options.K {
		options.FetchK = options.K
	}
	return options
}
