package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobis/internal/domain"
	"jobis/internal/embedding"
)

const defaultConcurrency = 8

// Store is the document store: it embeds records with a single embedding
// function, persists them through a Backend and answers similarity queries
// with the same function. The embedder name is recorded in the manifest and
// checked on every open.
type Store struct {
	backend     Backend
	embedder    embedding.Embedder
	logger      *zap.Logger
	concurrency int

	mu       sync.RWMutex
	manifest *Manifest
}

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithConcurrency bounds the number of embedding calls in flight during Index.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func New(backend Backend, embedder embedding.Embedder, opts ...Option) *Store {
	s := &Store{
		backend:     backend,
		embedder:    embedder,
		logger:      zap.NewNop(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the active manifest and checks it was built with the configured
// embedder. It returns domain.ErrStoreNotFound when no store was built yet.
func (s *Store) Open(ctx context.Context) (Manifest, error) {
	m, err := s.backend.Manifest(ctx)
	if err != nil {
		return Manifest{}, err
	}
	if m.Count > 0 && m.Embedder != s.embedder.Name() {
		return Manifest{}, &domain.EmbeddingMismatchError{Stored: m.Embedder, Current: s.embedder.Name()}
	}
	s.mu.Lock()
	s.manifest = &m
	s.mu.Unlock()
	s.logger.Info("vector store opened",
		zap.String("embedder", m.Embedder),
		zap.Int("dimension", m.Dimension),
		zap.Int("count", m.Count),
		zap.Time("built_at", m.BuiltAt))
	return m, nil
}

// Index embeds records and makes them the active store contents. With
// IndexReplace the previous contents are discarded; with IndexAppend they are
// kept, which requires the previous build to use the same embedder.
// On failure the previously active store remains active.
func (s *Store) Index(ctx context.Context, records []domain.Record, mode IndexMode) error {
	start := time.Now()
	name := s.embedder.Name()

	var existing []Entry
	if mode == IndexAppend {
		m, err := s.backend.Manifest(ctx)
		switch {
		case errors.Is(err, domain.ErrStoreNotFound):
		case err != nil:
			return &domain.StoreBuildError{Op: "read manifest", Err: err}
		default:
			if m.Count > 0 && m.Embedder != name {
				return &domain.EmbeddingMismatchError{Stored: m.Embedder, Current: name}
			}
			existing, err = s.backend.Entries(ctx)
			if err != nil {
				return &domain.StoreBuildError{Op: "read entries", Err: err}
			}
		}
	}

	seen := make(map[string]struct{}, len(existing)+len(records))
	for _, e := range existing {
		seen[e.Record.Metadata.RecordID] = struct{}{}
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return &domain.StoreBuildError{Op: "validate", Err: err}
		}
		if _, dup := seen[r.Metadata.RecordID]; dup {
			return &domain.StoreBuildError{Op: "validate", Err: fmt.Errorf("duplicate record_id %q", r.Metadata.RecordID)}
		}
		seen[r.Metadata.RecordID] = struct{}{}
	}

	vectors, err := s.embedAll(ctx, records)
	if err != nil {
		return &domain.StoreBuildError{Op: "embed", Err: err}
	}

	entries := make([]Entry, 0, len(existing)+len(records))
	entries = append(entries, existing...)
	dim := 0
	if len(existing) > 0 {
		dim = len(existing[0].Vector)
	}
	for i, r := range records {
		v := vectors[i]
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim || dim == 0 {
			return &domain.StoreBuildError{
				Op:  "embed",
				Err: fmt.Errorf("record %q: vector dimension %d, want %d", r.Metadata.RecordID, len(v), dim),
			}
		}
		entries = append(entries, Entry{Record: r, Vector: v, Ord: len(entries)})
	}

	m := Manifest{Embedder: name, Dimension: dim, Count: len(entries), BuiltAt: time.Now().UTC()}
	if err := s.backend.Replace(ctx, m, entries); err != nil {
		return &domain.StoreBuildError{Op: "persist", Err: err}
	}

	s.mu.Lock()
	s.manifest = &m
	s.mu.Unlock()

	s.logger.Info("vector store built",
		zap.Stringer("mode", mode),
		zap.String("embedder", name),
		zap.Int("added", len(records)),
		zap.Int("count", m.Count),
		zap.Duration("took", time.Since(start)))
	return nil
}

// SimilaritySearch embeds query and returns at most k nearest records in
// non-decreasing distance order. The generation that served the results is
// checked against the configured embedder on every call, since another
// process may have rebuilt the store after Open.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	m, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return []domain.SearchResult{}, nil
	}
	if m.Count == 0 {
		// an empty store may have been rebuilt since it was opened
		if m, err = s.Open(ctx); err != nil {
			return nil, err
		}
		if m.Count == 0 {
			return []domain.SearchResult{}, nil
		}
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) != m.Dimension {
		return nil, s.mismatch(m, len(vec))
	}
	if zeroNorm(vec) {
		// nothing in the query survived tokenisation; no direction to compare
		s.logger.Debug("query embedded to a zero vector", zap.Int("query_len", len(query)))
		return []domain.SearchResult{}, nil
	}

	results, served, err := s.backend.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	if served.Embedder != "" && served.Embedder != s.embedder.Name() {
		s.logger.Error("store rebuilt with another embedder",
			zap.String("stored", served.Embedder),
			zap.String("configured", s.embedder.Name()))
		return nil, &domain.EmbeddingMismatchError{Stored: served.Embedder, Current: s.embedder.Name()}
	}
	if served.Dimension != 0 && served.Dimension != len(vec) {
		return nil, s.mismatch(served, len(vec))
	}
	return results, nil
}

func (s *Store) mismatch(m Manifest, dim int) error {
	return &domain.EmbeddingMismatchError{
		Stored:  fmt.Sprintf("%s (dim %d)", m.Embedder, m.Dimension),
		Current: fmt.Sprintf("%s (dim %d)", s.embedder.Name(), dim),
	}
}

func zeroNorm(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) current(ctx context.Context) (Manifest, error) {
	s.mu.RLock()
	m := s.manifest
	s.mu.RUnlock()
	if m != nil {
		return *m, nil
	}
	return s.Open(ctx)
}

func (s *Store) embedAll(ctx context.Context, records []domain.Record) ([][]float32, error) {
	vectors := make([][]float32, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range records {
		i := i
		g.Go(func() error {
			v, err := s.embedder.Embed(gctx, records[i].Text)
			if err != nil {
				return fmt.Errorf("record %q: %w", records[i].Metadata.RecordID, err)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
