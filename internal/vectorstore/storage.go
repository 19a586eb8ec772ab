package vectorstore

import (
	"context"
	"time"

	"jobis/internal/domain"
)

// Entry is one persisted (record, vector) pair. Ord is the insertion position
// used to break distance ties.
type Entry struct {
	Record domain.Record `json:"record"`
	Vector []float32     `json:"vector"`
	Ord    int           `json:"ord"`
}

// Manifest describes the active store generation.
type Manifest struct {
	Embedder  string    `json:"embedder"`
	Dimension int       `json:"dimension"`
	Count     int       `json:"count"`
	BuiltAt   time.Time `json:"built_at"`
}

// Backend persists entries and answers nearest-neighbour queries.
// Replace must swap the active generation atomically: readers see either the
// old entries or the new ones, never a partial build.
type Backend interface {
	// Manifest returns domain.ErrStoreNotFound when nothing has been built yet.
	Manifest(ctx context.Context) (Manifest, error)
	Entries(ctx context.Context) ([]Entry, error)
	Replace(ctx context.Context, manifest Manifest, entries []Entry) error
	// Search returns up to k results ordered by ascending distance, then Ord,
	// with the manifest of the generation that served them. A zero Embedder
	// in that manifest means the backend could not tell.
	Search(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, Manifest, error)
	Close() error
}

// IndexMode selects what happens to existing entries on Index.
type IndexMode int

const (
	// IndexReplace discards the previous contents.
	IndexReplace IndexMode = iota
	// IndexAppend keeps the previous contents and adds the new records.
	IndexAppend
)

func (m IndexMode) String() string {
	if m == IndexAppend {
		return "append"
	}
	return "replace"
}

// ParseIndexMode accepts "replace" (or empty) and "append".
func ParseIndexMode(s string) (IndexMode, bool) {
	switch s {
	case "", "replace":
		return IndexReplace, true
	case "append":
		return IndexAppend, true
	default:
		return IndexReplace, false
	}
}
