package memory

import (
	"context"
	"sync"

	"jobis/internal/domain"
	"jobis/internal/vectorstore"
)

type snapshot struct {
	manifest vectorstore.Manifest
	entries  []vectorstore.Entry
}

// Storage is a process-local backend using brute-force cosine similarity.
// Each Replace installs a new immutable snapshot.
type Storage struct {
	mu      sync.RWMutex
	current *snapshot
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Manifest(_ context.Context) (vectorstore.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return vectorstore.Manifest{}, domain.ErrStoreNotFound
	}
	return s.current.manifest, nil
}

func (s *Storage) Entries(_ context.Context) ([]vectorstore.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, domain.ErrStoreNotFound
	}
	out := make([]vectorstore.Entry, len(s.current.entries))
	copy(out, s.current.entries)
	return out, nil
}

func (s *Storage) Replace(_ context.Context, manifest vectorstore.Manifest, entries []vectorstore.Entry) error {
	snap := &snapshot{manifest: manifest, entries: make([]vectorstore.Entry, len(entries))}
	copy(snap.entries, entries)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = snap
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, k int) ([]domain.SearchResult, vectorstore.Manifest, error) {
	s.mu.RLock()
	snap := s.current
	s.mu.RUnlock()
	if snap == nil {
		return nil, vectorstore.Manifest{}, domain.ErrStoreNotFound
	}
	return vectorstore.BruteForce(snap.entries, vector, k), snap.manifest, nil
}

func (s *Storage) Close() error { return nil }
