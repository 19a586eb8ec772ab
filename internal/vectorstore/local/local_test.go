package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobis/internal/domain"
	"jobis/internal/vectorstore"
)

func sampleEntries() []vectorstore.Entry {
	return []vectorstore.Entry{
		{
			Record: domain.Record{Text: "복지가 좋아요", Metadata: domain.Metadata{
				EntityName: "에이컴퍼니", Category: domain.CategoryIT, Kind: domain.KindReview,
				Sentiment: domain.SentimentPositive, Score: 5, Date: "2024-03-01", RecordID: "a-1",
			}},
			Vector: []float32{1, 0},
			Ord:    0,
		},
		{
			Record: domain.Record{Text: "면접은 무난했어요", Metadata: domain.Metadata{
				EntityName: "비컴퍼니", Category: domain.CategoryFinance, Kind: domain.KindInterview,
				Sentiment: domain.SentimentNeutral, RecordID: "b-1",
			}},
			Vector: []float32{0, 1},
			Ord:    1,
		},
	}
}

func TestStorage_NotFound(t *testing.T) {
	s := NewStorage(filepath.Join(t.TempDir(), "missing"))
	_, err := s.Manifest(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
}

func TestStorage_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	m := vectorstore.Manifest{Embedder: "hashing-v1-2", Dimension: 2, Count: 2, BuiltAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, NewStorage(dir).Replace(ctx, m, sampleEntries()))

	reopened := NewStorage(dir)
	got, err := reopened.Manifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	entries, err := reopened.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleEntries(), entries)

	res, served, err := reopened.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, m, served)
	require.Len(t, res, 1)
	assert.Equal(t, "b-1", res[0].Record.Metadata.RecordID)
}

func TestStorage_ReplacePrunesOldGenerations(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := NewStorage(dir)
	require.NoError(t, s.Replace(ctx, vectorstore.Manifest{Count: 2}, sampleEntries()))
	require.NoError(t, s.Replace(ctx, vectorstore.Manifest{Count: 1}, sampleEntries()[:1]))

	dirents, err := os.ReadDir(dir)
	require.NoError(t, err)
	var gens []string
	for _, d := range dirents {
		if strings.HasPrefix(d.Name(), genPrefix) {
			gens = append(gens, d.Name())
		}
	}
	require.Len(t, gens, 1)

	current, err := os.ReadFile(filepath.Join(dir, currentFile))
	require.NoError(t, err)
	assert.Equal(t, gens[0], strings.TrimSpace(string(current)))
}

func TestStorage_PicksUpNewerBuild(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	reader := NewStorage(dir)
	writer := NewStorage(dir)

	require.NoError(t, writer.Replace(ctx, vectorstore.Manifest{Count: 2}, sampleEntries()))
	m, err := reader.Manifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count)

	require.NoError(t, writer.Replace(ctx, vectorstore.Manifest{Count: 1}, sampleEntries()[:1]))
	m, err = reader.Manifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count)
}
