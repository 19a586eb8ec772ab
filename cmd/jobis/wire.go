package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"jobis/internal/answer"
	"jobis/internal/assembler"
	"jobis/internal/config"
	"jobis/internal/domain"
	"jobis/internal/embedding"
	"jobis/internal/embedding/google"
	"jobis/internal/embedding/hashing"
	"jobis/internal/embedding/openai"
	"jobis/internal/generator"
	anthropicgen "jobis/internal/generator/anthropic"
	googlegen "jobis/internal/generator/google"
	openaigen "jobis/internal/generator/openai"
	"jobis/internal/prompt"
	"jobis/internal/retriever"
	"jobis/internal/service"
	"jobis/internal/vectorstore"
	"jobis/internal/vectorstore/local"
	"jobis/internal/vectorstore/postgres"
	"jobis/internal/vectorstore/qdrant"
)

// closers releases clients in reverse order of creation.
type closers []io.Closer

func (c closers) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		_ = c[i].Close()
	}
}

func newBackend(ctx context.Context, cfg *config.AppConfig) (vectorstore.Backend, error) {
	switch cfg.Store.Type {
	case "local", "":
		return local.NewStorage(cfg.Store.Location), nil
	case "qdrant":
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Store.Qdrant.URL,
			APIKey:     os.Getenv(cfg.Store.Qdrant.APIKeyEnv),
			Collection: cfg.Store.Location,
			Timeout:    time.Duration(cfg.Store.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	case "postgres":
		dsn := os.Getenv(cfg.Store.Postgres.DSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("postgres store: %s is not set", cfg.Store.Postgres.DSNEnv)
		}
		db, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		st, err := postgres.NewStorage(db, cfg.Store.Location)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store: %s", cfg.Store.Type)
	}
}

func newEmbedder(ctx context.Context, cfg *config.AppConfig) (embedding.Embedder, io.Closer, error) {
	ec := cfg.Embedder
	opts := []embedding.Option{
		embedding.WithModel(ec.Model),
		embedding.WithDimension(ec.Dimension),
		embedding.WithBaseURL(ec.BaseURL),
		embedding.WithTimeout(time.Duration(ec.TimeoutSecs) * time.Second),
		embedding.WithMaxRetries(ec.MaxRetries),
	}
	if ec.APIKeyEnv != "" {
		opts = append(opts, embedding.WithApiKey(os.Getenv(ec.APIKeyEnv)))
	}
	switch ec.Type {
	case "hashing", "":
		return hashing.NewEmbedder(opts...), nil, nil
	case "openai":
		c, err := openai.NewClient(opts...)
		return c, nil, err
	case "google":
		e, err := google.NewEmbedder(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		return e, e, nil
	default:
		return nil, nil, fmt.Errorf("unknown embedder: %s", ec.Type)
	}
}

func newGenerator(ctx context.Context, cfg *config.AppConfig) (generator.Generator, io.Closer, error) {
	gc := cfg.Generator
	opts := []generator.Option{
		generator.WithApiKey(os.Getenv(gc.APIKeyEnv)),
		generator.WithModel(gc.Model),
		generator.WithBaseURL(gc.BaseURL),
		generator.WithMaxTokens(gc.MaxTokens),
		generator.WithTimeout(time.Duration(gc.TimeoutSecs) * time.Second),
	}
	switch gc.Type {
	case "google", "":
		g, err := googlegen.NewGenerator(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	case "openai":
		g, err := openaigen.NewGenerator(opts...)
		return g, nil, err
	case "anthropic":
		g, err := anthropicgen.NewGenerator(opts...)
		return g, nil, err
	default:
		return nil, nil, fmt.Errorf("unknown generator: %s", gc.Type)
	}
}

// newStore wires the backend and embedder into a document store. The store
// is not opened.
func newStore(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*vectorstore.Store, closers, error) {
	var cl closers
	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("store init failed: %w", err)
	}
	cl = append(cl, backend)
	emb, embCloser, err := newEmbedder(ctx, cfg)
	if err != nil {
		cl.Close()
		return nil, nil, fmt.Errorf("embedder init failed: %w", err)
	}
	if embCloser != nil {
		cl = append(cl, embCloser)
	}
	store := vectorstore.New(backend, emb,
		vectorstore.WithLogger(logger.Named("store")),
		vectorstore.WithConcurrency(cfg.Embedder.Concurrency))
	return store, cl, nil
}

// newOrchestrator builds the whole query path. A store that was never
// indexed, or was indexed with a different embedder, is a startup failure.
func newOrchestrator(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*service.Orchestrator, closers, error) {
	store, cl, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if _, err := store.Open(ctx); err != nil {
		cl.Close()
		if errors.Is(err, domain.ErrStoreNotFound) {
			return nil, nil, fmt.Errorf("no document store at %q: run `jobis index` first", cfg.Store.Location)
		}
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	policy, err := retriever.ParsePolicy(cfg.Retriever.Policy)
	if err != nil {
		cl.Close()
		return nil, nil, err
	}
	ret, err := retriever.New(store, logger.Named("retriever"),
		retriever.WithPolicy(policy),
		retriever.WithK(cfg.Retriever.K),
		retriever.WithFetchK(cfg.Retriever.FetchK),
		retriever.WithLambdaMult(*cfg.Retriever.LambdaMult))
	if err != nil {
		cl.Close()
		return nil, nil, err
	}

	gen, genCloser, err := newGenerator(ctx, cfg)
	if err != nil {
		cl.Close()
		return nil, nil, fmt.Errorf("generator init failed: %w", err)
	}
	if genCloser != nil {
		cl = append(cl, genCloser)
	}

	tmpl := prompt.Default()
	if cfg.Answer.DeclineMessage != "" {
		tmpl.DeclinePhrase = cfg.Answer.DeclineMessage
	}
	answerOpts := []answer.Option{
		answer.WithTemplate(tmpl),
		answer.WithTemperature(cfg.Generator.Temperature),
		answer.WithTimeout(time.Duration(cfg.Generator.TimeoutSecs) * time.Second),
		answer.WithLogger(logger.Named("answer")),
	}
	orchOpts := []service.Option{service.WithLogger(logger.Named("orchestrator"))}
	if cfg.Answer.ErrorMessage != "" {
		answerOpts = append(answerOpts, answer.WithErrorMessage(cfg.Answer.ErrorMessage))
		orchOpts = append(orchOpts, service.WithErrorMessage(cfg.Answer.ErrorMessage))
	}
	if cfg.Answer.EmptyQueryMessage != "" {
		orchOpts = append(orchOpts, service.WithEmptyQueryMessage(cfg.Answer.EmptyQueryMessage))
	}
	ans, err := answer.New(gen, answerOpts...)
	if err != nil {
		cl.Close()
		return nil, nil, err
	}

	return service.NewOrchestrator(ret, assembler.New(*cfg.Context.MaxChars), ans, orchOpts...), cl, nil
}
