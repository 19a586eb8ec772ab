package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"jobis/internal/domain"
	"jobis/internal/vectorstore"
)

const (
	currentFile  = "CURRENT"
	manifestFile = "manifest.json"
	entriesFile  = "entries.json"
	genPrefix    = "gen-"
)

// Storage persists the store as JSON under a directory. Every build is
// written to a fresh generation directory and activated by atomically
// renaming the CURRENT pointer, so readers never observe a partial build.
//
//	<dir>/CURRENT            name of the active generation
//	<dir>/gen-<uuid>/manifest.json
//	<dir>/gen-<uuid>/entries.json
type Storage struct {
	dir string

	mu         sync.RWMutex
	generation string
	manifest   vectorstore.Manifest
	entries    []vectorstore.Entry
}

func NewStorage(dir string) *Storage {
	return &Storage{dir: dir}
}

type entryFile struct {
	Text     string          `json:"text"`
	Metadata domain.Metadata `json:"metadata"`
	Vector   []float32       `json:"vector"`
	Ord      int             `json:"ord"`
}

func (s *Storage) Manifest(_ context.Context) (vectorstore.Manifest, error) {
	if err := s.load(); err != nil {
		return vectorstore.Manifest{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest, nil
}

func (s *Storage) Entries(_ context.Context) ([]vectorstore.Entry, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]vectorstore.Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *Storage) Search(_ context.Context, vector []float32, k int) ([]domain.SearchResult, vectorstore.Manifest, error) {
	if err := s.load(); err != nil {
		return nil, vectorstore.Manifest{}, err
	}
	s.mu.RLock()
	entries, manifest := s.entries, s.manifest
	s.mu.RUnlock()
	return vectorstore.BruteForce(entries, vector, k), manifest, nil
}

func (s *Storage) Replace(_ context.Context, manifest vectorstore.Manifest, entries []vectorstore.Entry) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	gen := genPrefix + uuid.NewString()
	genDir := filepath.Join(s.dir, gen)
	if err := os.Mkdir(genDir, 0o755); err != nil {
		return err
	}

	rows := make([]entryFile, len(entries))
	for i, e := range entries {
		rows[i] = entryFile{Text: e.Record.Text, Metadata: e.Record.Metadata, Vector: e.Vector, Ord: e.Ord}
	}
	if err := writeJSON(filepath.Join(genDir, entriesFile), rows); err != nil {
		_ = os.RemoveAll(genDir)
		return err
	}
	if err := writeJSON(filepath.Join(genDir, manifestFile), manifest); err != nil {
		_ = os.RemoveAll(genDir)
		return err
	}

	tmp := filepath.Join(s.dir, currentFile+".tmp")
	if err := os.WriteFile(tmp, []byte(gen+"\n"), 0o644); err != nil {
		_ = os.RemoveAll(genDir)
		return err
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, currentFile)); err != nil {
		_ = os.RemoveAll(genDir)
		return err
	}

	s.mu.Lock()
	s.generation = gen
	s.manifest = manifest
	s.entries = append([]vectorstore.Entry(nil), entries...)
	s.mu.Unlock()

	s.prune(gen)
	return nil
}

func (s *Storage) Close() error { return nil }

// load reads the active generation unless it is already cached.
func (s *Storage) load() error {
	raw, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrStoreNotFound
	}
	if err != nil {
		return err
	}
	gen := strings.TrimSpace(string(raw))

	s.mu.RLock()
	cached := s.generation == gen
	s.mu.RUnlock()
	if cached {
		return nil
	}

	genDir := filepath.Join(s.dir, gen)
	var manifest vectorstore.Manifest
	if err := readJSON(filepath.Join(genDir, manifestFile), &manifest); err != nil {
		return fmt.Errorf("read manifest of %s: %w", gen, err)
	}
	var rows []entryFile
	if err := readJSON(filepath.Join(genDir, entriesFile), &rows); err != nil {
		return fmt.Errorf("read entries of %s: %w", gen, err)
	}
	entries := make([]vectorstore.Entry, len(rows))
	for i, r := range rows {
		entries[i] = vectorstore.Entry{
			Record: domain.Record{Text: r.Text, Metadata: r.Metadata},
			Vector: r.Vector,
			Ord:    r.Ord,
		}
	}

	s.mu.Lock()
	s.generation = gen
	s.manifest = manifest
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// prune removes inactive generations. Failures are ignored; a leftover
// directory is never read.
func (s *Storage) prune(active string) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, d := range dirents {
		if d.IsDir() && strings.HasPrefix(d.Name(), genPrefix) && d.Name() != active {
			_ = os.RemoveAll(filepath.Join(s.dir, d.Name()))
		}
	}
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}
