package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"jobis/internal/config"
	"jobis/internal/feed"
	"jobis/internal/observability"
	"jobis/internal/preprocess"
	"jobis/internal/server"
	"jobis/internal/service"
	"jobis/internal/tui"
	"jobis/internal/vectorstore"
)

type cli struct {
	Config string `help:"Path to YAML config file (uses ./config.yaml or ~/.config/jobis/config.yaml if not provided)" type:"path" env:"JOBIS_CONFIG"`

	StoreLocation   *string  `help:"Store directory, collection or table" env:"JOBIS_STORE_LOCATION"`
	EmbeddingModel  *string  `help:"Embedding model identifier" env:"JOBIS_EMBEDDING_MODEL"`
	K               *int     `name:"k" help:"Number of records passed to the generator" env:"JOBIS_K"`
	FetchK          *int     `help:"Candidates considered by MMR" env:"JOBIS_FETCH_K"`
	LambdaMult      *float64 `help:"MMR relevance/diversity trade-off in [0,1]" env:"JOBIS_LAMBDA_MULT"`
	Temperature     *float64 `help:"Generation temperature" env:"JOBIS_TEMPERATURE"`
	GenerationModel *string  `help:"Generation model identifier" env:"JOBIS_GENERATION_MODEL"`

	Preprocess preprocessCmd `cmd:"" help:"Clean a raw company dump into a feed file."`
	Index      indexCmd      `cmd:"" help:"Embed feed files into the document store."`
	Ask        askCmd        `cmd:"" help:"Answer a single question and exit."`
	Chat       chatCmd       `cmd:"" default:"1" help:"Interactive chat (default)."`
	Serve      serveCmd      `cmd:"" help:"Serve the HTTP API."`
}

type app struct {
	cfg    *config.AppConfig
	logger *zap.Logger
}

func (c *cli) overrides() config.Overrides {
	return config.Overrides{
		StoreLocation:   c.StoreLocation,
		EmbeddingModel:  c.EmbeddingModel,
		K:               c.K,
		FetchK:          c.FetchK,
		LambdaMult:      c.LambdaMult,
		Temperature:     c.Temperature,
		GenerationModel: c.GenerationModel,
	}
}

type preprocessCmd struct {
	Input  string `arg:"" help:"Raw company JSON dump." type:"existingfile"`
	Output string `short:"o" help:"Where to write the cleaned feed." default:"cleaned.json" type:"path"`
}

func (c *preprocessCmd) Run(a *app) error {
	in, err := os.Open(c.Input)
	if err != nil {
		return err
	}
	defer in.Close()
	companies, err := preprocess.Decode(in)
	if err != nil {
		return err
	}

	items, stats := preprocess.NewProcessor().Process(companies)
	report := preprocess.Verify(items)
	a.logger.Info("preprocessed",
		zap.Int("companies", stats.Companies),
		zap.Int("items", stats.Items),
		zap.Int("kept", stats.Kept),
		zap.Int("dropped_empty", stats.DroppedEmpty),
		zap.Int("unknown_type", stats.UnknownType))
	if !report.OK() {
		a.logger.Warn("feed verification flagged items",
			zap.Int("empty_content", report.EmptyContent),
			zap.Int("residual_markers", report.ResidualMarkers),
			zap.Int("split_failures", report.SplitFailures),
			zap.Strings("flagged", report.Flagged))
	}

	out, err := os.Create(c.Output)
	if err != nil {
		return err
	}
	if err := feed.Write(out, items); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Printf("%d items written to %s\n", len(items), c.Output)
	return nil
}

type indexCmd struct {
	Feed []string `help:"Feed file or glob; repeatable." required:"" placeholder:"PATH"`
	Mode string   `help:"replace or append" enum:"replace,append" default:"replace"`
}

func (c *indexCmd) Run(ctx context.Context, a *app) error {
	mode, ok := vectorstore.ParseIndexMode(c.Mode)
	if !ok {
		return fmt.Errorf("unknown index mode: %s", c.Mode)
	}
	store, cl, err := newStore(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer cl.Close()

	n, err := service.NewIndexer(store, a.logger.Named("indexer")).IngestFeeds(ctx, c.Feed, mode)
	if err != nil {
		return err
	}
	fmt.Printf("%d records indexed (%s) into %s store\n", n, mode, a.cfg.Store.Type)
	return nil
}

type askCmd struct {
	Question []string `arg:"" help:"Question text."`
}

func (c *askCmd) Run(ctx context.Context, a *app) error {
	orch, cl, err := newOrchestrator(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer cl.Close()
	fmt.Println(orch.Ask(ctx, strings.Join(c.Question, " ")))
	return nil
}

type chatCmd struct{}

func (c *chatCmd) Run(ctx context.Context, a *app) error {
	// stderr shares the terminal with the UI; only file logging stays on.
	logger := a.logger
	if a.cfg.Log.Output == "" {
		logger = zap.NewNop()
	}
	orch, cl, err := newOrchestrator(ctx, a.cfg, logger)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer cl.Close()
	m := tui.New(ctx, orch, "JOBIS · 기업 리뷰 검색")
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

type serveCmd struct {
	Addr string `help:"Listen address (overrides server.addr)."`
}

func (c *serveCmd) Run(ctx context.Context, a *app) error {
	orch, cl, err := newOrchestrator(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer cl.Close()
	addr := a.cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}
	return server.Run(ctx, addr, server.NewHandler(orch, a.logger.Named("http")), a.logger)
}

func main() {
	_ = godotenv.Load()

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("jobis"),
		kong.Description("JOBIS: answers questions about companies from employee reviews and interview reports."),
		kong.UsageOnError())

	var cfg *config.AppConfig
	var err error
	if c.Config == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(c.Config)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.Apply(c.overrides())
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := observability.NewLogger(observability.LogOptions{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	err = kctx.Run(&app{cfg: cfg, logger: logger})
	kctx.FatalIfErrorf(err)
}
