package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"

	"jobis/internal/embedding"
)

const defaultModel = "text-embedding-3-small"

// Client is an OpenAI-compatible embeddings client implementing the Embedder interface.
// It also works against Ollama and other servers exposing /v1/embeddings.
type Client struct {
	options embedding.Options
	client  *openai.Client
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(opts ...embedding.Option) (*Client, error) {
	options := embedding.NewOptions(opts...)
	if options.ApiKey == "" {
		return nil, errors.New("openai embedder: missing API key")
	}
	if options.Model == "" {
		options.Model = defaultModel
	}
	cfg := openai.DefaultConfig(options.ApiKey)
	if options.BaseURL != "" {
		cfg.BaseURL = options.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: options.Timeout}
	return &Client{
		options: options,
		client:  openai.NewClientWithConfig(cfg),
	}, nil
}

// Name returns the embedding model identifier, including a requested
// dimension since shortened vectors are not comparable to full ones.
func (c *Client) Name() string {
	if c.options.Dimension > 0 {
		return fmt.Sprintf("openai/%s@%d", c.options.Model, c.options.Dimension)
	}
	return "openai/" + c.options.Model
}

// Embed returns a normalized embedding vector for the given text.
// Rate limits and server errors are retried with exponential backoff.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	b := retry.WithCappedDuration(5*time.Second, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, retry.WithMaxRetries(c.options.MaxRetries, b), func(ctx context.Context) error {
		req := openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(c.options.Model),
		}
		if c.options.Dimension > 0 {
			req.Dimensions = c.options.Dimension
		}
		rsp, err := c.client.CreateEmbeddings(ctx, req)
		if err != nil {
			if retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		if len(rsp.Data) == 0 || len(rsp.Data[0].Embedding) == 0 {
			return errors.New("no embedding returned")
		}
		vec = rsp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	return embedding.Normalize(vec), nil
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
