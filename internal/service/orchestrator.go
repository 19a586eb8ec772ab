package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"jobis/internal/domain"
)

const (
	DefaultEmptyQueryMessage = "질문을 입력해주세요."
	DefaultErrorMessage      = "오류가 발생했습니다. 잠시 후 다시 시도해주세요."
)

type Fetcher interface {
	Fetch(ctx context.Context, query string) ([]domain.Record, error)
}

type Formatter interface {
	Format(records []domain.Record) string
}

type Answerer interface {
	Generate(ctx context.Context, contextText, question string) string
}

type Option func(*Orchestrator)

func WithEmptyQueryMessage(msg string) Option {
	return func(o *Orchestrator) {
		if strings.TrimSpace(msg) != "" {
			o.emptyQueryMessage = msg
		}
	}
}

func WithErrorMessage(msg string) Option {
	return func(o *Orchestrator) {
		if strings.TrimSpace(msg) != "" {
			o.errorMessage = msg
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// Orchestrator answers one question at a time: retrieve, format, generate.
// It holds no per-query state and is safe for concurrent use when its
// collaborators are.
type Orchestrator struct {
	retriever Fetcher
	assembler Formatter
	answerer  Answerer

	emptyQueryMessage string
	errorMessage      string
	logger            *zap.Logger
}

func NewOrchestrator(retriever Fetcher, assembler Formatter, answerer Answerer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		retriever:         retriever,
		assembler:         assembler,
		answerer:          answerer,
		emptyQueryMessage: DefaultEmptyQueryMessage,
		errorMessage:      DefaultErrorMessage,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ask always returns a displayable string.
func (o *Orchestrator) Ask(ctx context.Context, question string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		o.logger.Debug("rejected query", zap.Error(domain.ErrEmptyQuery))
		return o.emptyQueryMessage
	}

	start := time.Now()
	records, err := o.retriever.Fetch(ctx, question)
	if err != nil {
		o.logger.Error("retrieval failed", zap.Error(err), zap.Int("question_len", len(question)))
		return o.errorMessage
	}

	contextText := o.assembler.Format(records)
	answer := o.answerer.Generate(ctx, contextText, question)

	o.logger.Info("query answered",
		zap.Int("question_len", len(question)),
		zap.Int("retrieved", len(records)),
		zap.Int("context_len", len(contextText)),
		zap.Duration("took", time.Since(start)))
	return answer
}
