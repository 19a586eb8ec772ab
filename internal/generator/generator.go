package generator

import "context"

// Generator is a text-generation backend.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}
