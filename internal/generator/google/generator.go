package google

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"

	"jobis/internal/generator"
)

const defaultModel = "gemini-1.5-flash"

type contentModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Generator calls Gemini through the generative-ai-go client.
type Generator struct {
	options generator.Options
	client  *genai.Client
	// model returns the configured model for one call.
	model func(temperature float64) contentModel
}

func (g *Generator) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	rsp, err := g.model(temperature).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return completion(rsp)
}

func (g *Generator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *Generator) newModel(temperature float64) contentModel {
	model := g.client.GenerativeModel(g.options.Model)
	model.SetTemperature(float32(temperature))
	if g.options.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.options.MaxTokens))
	}
	return model
}

// completion joins the text parts of the first candidate.
func completion(rsp *genai.GenerateContentResponse) (string, error) {
	if rsp == nil || len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
		return "", errors.New("no response from Google")
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no text in Google response")
	}
	return b.String(), nil
}

func NewGenerator(ctx context.Context, opts ...generator.Option) (*Generator, error) {
	options := generator.NewOptions(opts...)
	if len(options.ApiKey) == 0 {
		return nil, errors.New("google generator: missing API key")
	}
	if len(options.Model) == 0 {
		options.Model = defaultModel
	}

	client, err := genai.NewClient(ctx, genaiopt.WithAPIKey(options.ApiKey))
	if err != nil {
		return nil, err
	}

	g := &Generator{
		options: options,
		client:  client,
	}
	g.model = g.newModel
	return g, nil
}
