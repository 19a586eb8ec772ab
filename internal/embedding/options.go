package embedding

import "time"

type Option func(*Options)

type Options struct {
	ApiKey     string
	BaseURL    string
	Model      string
	Dimension  int
	Timeout    time.Duration
	MaxRetries uint64
}

func WithApiKey(apiKey string) Option {
	return func(o *Options) {
		o.ApiKey = apiKey
	}
}

func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.BaseURL = url
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithDimension(dim int) Option {
	return func(o *Options) {
		o.Dimension = dim
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

func WithMaxRetries(n uint64) Option {
	return func(o *Options) {
		o.MaxRetries = n
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Timeout:    30 * time.Second,
		MaxRetries: 5,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
