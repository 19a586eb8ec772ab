package generator

import "time"

type Option func(*Options)

type Options struct {
	ApiKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
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

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		MaxTokens: 1024,
		Timeout:   60 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
