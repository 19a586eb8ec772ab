package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"jobis/internal/domain"
	"jobis/internal/feed"
	"jobis/internal/vectorstore"
)

type RecordIndex interface {
	Index(ctx context.Context, records []domain.Record, mode vectorstore.IndexMode) error
}

// Indexer runs the offline build: load feed files, convert, index.
type Indexer struct {
	store  RecordIndex
	logger *zap.Logger
}

func NewIndexer(store RecordIndex, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{store: store, logger: logger}
}

// IngestFeeds indexes every .json feed matched by paths (globs allowed) and
// returns the number of records indexed.
func (x *Indexer) IngestFeeds(ctx context.Context, paths []string, mode vectorstore.IndexMode) (int, error) {
	start := time.Now()
	var files []string
	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return 0, fmt.Errorf("bad feed pattern %q: %w", p, err)
		}
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			if strings.HasSuffix(strings.ToLower(m), ".json") {
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no .json feed files found")
	}

	var records []domain.Record
	for _, f := range files {
		items, err := feed.Load(f)
		if err != nil {
			return 0, fmt.Errorf("load %s: %w", f, err)
		}
		recs, err := feed.ToRecords(items, x.logger)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", f, err)
		}
		x.logger.Info("feed loaded", zap.String("file", f), zap.Int("records", len(recs)))
		records = append(records, recs...)
	}

	if err := x.store.Index(ctx, records, mode); err != nil {
		return 0, err
	}
	x.logger.Info("index complete",
		zap.Int("files", len(files)),
		zap.Int("records", len(records)),
		zap.Stringer("mode", mode),
		zap.Duration("took", time.Since(start)))
	return len(records), nil
}
