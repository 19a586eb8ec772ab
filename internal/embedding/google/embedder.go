package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"
	genaiopt "google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"jobis/internal/embedding"
)

const defaultModel = "text-embedding-004"

type embedModel interface {
	EmbedContent(ctx context.Context, parts ...genai.Part) (*genai.EmbedContentResponse, error)
}

// Embedder calls the Gemini embedding API.
type Embedder struct {
	options embedding.Options
	client  *genai.Client
	model   embedModel
}

func (e *Embedder) Name() string { return "google/" + e.options.Model }

// Embed returns a normalized embedding vector for text.
// Quota and server errors are retried with exponential backoff.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var values []float32
	b := retry.WithCappedDuration(5*time.Second, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, retry.WithMaxRetries(e.options.MaxRetries, b), func(ctx context.Context) error {
		rsp, err := e.model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			if retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		if rsp == nil || rsp.Embedding == nil || len(rsp.Embedding.Values) == 0 {
			return errors.New("no response from Google")
		}
		values = rsp.Embedding.Values
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("google embeddings: %w", err)
	}
	return embedding.Normalize(values), nil
}

func (e *Embedder) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

func retryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	switch status.Code(err) {
	case codes.ResourceExhausted, codes.Unavailable, codes.Internal, codes.Aborted:
		return true
	}
	return false
}

// NewEmbedder creates a Gemini embeddings client.
func NewEmbedder(ctx context.Context, opts ...embedding.Option) (*Embedder, error) {
	options := embedding.NewOptions(opts...)
	if len(options.ApiKey) == 0 {
		return nil, errors.New("google embedder: missing API key")
	}
	if len(options.Model) == 0 {
		options.Model = defaultModel
	}

	client, err := genai.NewClient(ctx, genaiopt.WithAPIKey(options.ApiKey))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		options: options,
		client:  client,
		model:   client.EmbeddingModel(options.Model),
	}, nil
}
