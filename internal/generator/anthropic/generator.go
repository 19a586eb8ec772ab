package anthropic

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"jobis/internal/generator"
)

const defaultModel = "claude-3-5-haiku-latest"

type Generator struct {
	options generator.Options
	client  *anthropic.Client
}

func (g *Generator) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.options.Model),
		MaxTokens:   int64(g.options.MaxTokens),
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	rsp, err := g.client.Messages.New(ctx, req)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	result := b.String()
	if len(result) == 0 {
		return "", errors.New("no response from Anthropic")
	}

	return result, nil
}

func NewGenerator(opts ...generator.Option) (*Generator, error) {
	options := generator.NewOptions(opts...)
	if len(options.ApiKey) == 0 {
		return nil, errors.New("anthropic generator: missing API key")
	}
	if len(options.Model) == 0 {
		options.Model = defaultModel
	}

	clientOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(options.ApiKey),
		anthropicopt.WithRequestTimeout(options.Timeout),
	}
	if len(options.BaseURL) > 0 {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(options.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Generator{
		options: options,
		client:  &client,
	}, nil
}
