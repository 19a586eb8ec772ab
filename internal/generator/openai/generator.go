package openai

import (
	"context"
	"errors"
	"math"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"jobis/internal/generator"
)

const defaultModel = "gpt-4o-mini"

// Generator talks to any OpenAI-compatible chat completions endpoint.
type Generator struct {
	options generator.Options
	client  *openai.Client
}

func (g *Generator) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	t := float32(temperature)
	if t == 0 {
		// Zero is dropped by omitempty and the server default would apply.
		t = math.SmallestNonzeroFloat32
	}
	req := openai.ChatCompletionRequest{
		Model:       g.options.Model,
		Temperature: t,
		MaxTokens:   g.options.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	rsp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(rsp.Choices) == 0 || len(rsp.Choices[0].Message.Content) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return rsp.Choices[0].Message.Content, nil
}

func NewGenerator(opts ...generator.Option) (*Generator, error) {
	options := generator.NewOptions(opts...)
	if len(options.ApiKey) == 0 {
		return nil, errors.New("openai generator: missing API key")
	}
	if len(options.Model) == 0 {
		options.Model = defaultModel
	}

	cfg := openai.DefaultConfig(options.ApiKey)
	if len(options.BaseURL) > 0 {
		cfg.BaseURL = options.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: options.Timeout}

	return &Generator{
		options: options,
		client:  openai.NewClientWithConfig(cfg),
	}, nil
}
