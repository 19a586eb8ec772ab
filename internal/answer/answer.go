package answer

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"jobis/internal/domain"
	"jobis/internal/generator"
	"jobis/internal/prompt"
)

const DefaultErrorMessage = "오류가 발생했습니다. 잠시 후 다시 시도해주세요."

type Option func(*Answerer)

func WithTemplate(t prompt.Template) Option {
	return func(a *Answerer) {
		a.template = t
	}
}

func WithTemperature(t float64) Option {
	return func(a *Answerer) {
		a.temperature = t
	}
}

// WithTimeout bounds each backend call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(a *Answerer) {
		a.timeout = d
	}
}

func WithErrorMessage(msg string) Option {
	return func(a *Answerer) {
		if strings.TrimSpace(msg) != "" {
			a.errorMessage = msg
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Answerer) {
		a.logger = l
	}
}

// Answerer produces grounded answers. It never returns an error: backend
// failures are logged and turned into a fixed message.
type Answerer struct {
	backend      generator.Generator
	template     prompt.Template
	temperature  float64
	timeout      time.Duration
	errorMessage string
	logger       *zap.Logger
}

func New(backend generator.Generator, opts ...Option) (*Answerer, error) {
	a := &Answerer{
		backend:      backend,
		template:     prompt.Default(),
		timeout:      60 * time.Second,
		errorMessage: DefaultErrorMessage,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.template.Validate(); err != nil {
		return nil, err
	}
	if a.temperature < 0 {
		return nil, errors.New("answer: temperature must not be negative")
	}
	return a, nil
}

// DeclinePhrase is returned when the context holds no answer.
func (a *Answerer) DeclinePhrase() string { return a.template.DeclinePhrase }

// Generate answers question from contextText only. Blank context declines
// without calling the backend.
func (a *Answerer) Generate(ctx context.Context, contextText, question string) string {
	if strings.TrimSpace(contextText) == "" {
		a.logger.Debug("empty context, declining")
		return a.template.DeclinePhrase
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	text := a.template.Render(prompt.Slots{Context: contextText, Question: question})
	out, err := a.backend.Generate(ctx, text, a.temperature)
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("blank completion")
	}
	if err != nil {
		genErr := &domain.GenerationError{Err: err}
		a.logger.Warn("generation failed",
			zap.Error(genErr),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
			zap.Duration("took", time.Since(start)))
		return a.errorMessage
	}

	a.logger.Debug("generated",
		zap.Int("prompt_chars", len(text)),
		zap.Int("answer_chars", len(out)),
		zap.Duration("took", time.Since(start)))
	return strings.TrimSpace(out)
}
