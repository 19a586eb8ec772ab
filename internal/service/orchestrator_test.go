package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobis/internal/answer"
	"jobis/internal/assembler"
	"jobis/internal/domain"
	"jobis/internal/embedding"
	"jobis/internal/embedding/hashing"
	"jobis/internal/feed"
	"jobis/internal/prompt"
	"jobis/internal/retriever"
	"jobis/internal/vectorstore"
	"jobis/internal/vectorstore/memory"
)

type stubFetcher struct {
	records []domain.Record
	err     error
	calls   int
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) ([]domain.Record, error) {
	f.calls++
	return f.records, f.err
}

type stubAnswerer struct {
	calls       int
	contextText string
}

func (a *stubAnswerer) Generate(_ context.Context, contextText, _ string) string {
	a.calls++
	a.contextText = contextText
	return "answer"
}

// countingBackend stands in for a text-generation service.
type countingBackend struct {
	calls  int
	prompt string
	reply  string
}

func (b *countingBackend) Generate(_ context.Context, p string, _ float64) (string, error) {
	b.calls++
	b.prompt = p
	return b.reply, nil
}

func TestAsk_BlankQuestion(t *testing.T) {
	f := &stubFetcher{}
	a := &stubAnswerer{}
	o := NewOrchestrator(f, assembler.New(0), a)

	for _, q := range []string{"", "  ", "\n\t"} {
		assert.Equal(t, DefaultEmptyQueryMessage, o.Ask(context.Background(), q))
	}
	assert.Equal(t, 0, f.calls)
	assert.Equal(t, 0, a.calls)
}

func TestAsk_RetrievalErrorIsRecoverable(t *testing.T) {
	f := &stubFetcher{err: domain.ErrStoreNotFound}
	a := &stubAnswerer{}
	o := NewOrchestrator(f, assembler.New(0), a, WithErrorMessage("retry later"))

	assert.Equal(t, "retry later", o.Ask(context.Background(), "복지?"))
	assert.Equal(t, 0, a.calls)
}

func TestAsk_PassesFormattedContext(t *testing.T) {
	f := &stubFetcher{records: []domain.Record{
		{Text: "second", Metadata: domain.Metadata{EntityName: "B"}},
		{Text: "first", Metadata: domain.Metadata{EntityName: "A"}},
	}}
	a := &stubAnswerer{}
	o := NewOrchestrator(f, assembler.New(0), a)

	assert.Equal(t, "answer", o.Ask(context.Background(), "  q  "))
	assert.Equal(t, "[B]\nsecond\n\n[A]\nfirst", a.contextText)
}

type pipeline struct {
	store   *vectorstore.Store
	backend *countingBackend
	ask     func(string) string
}

func newPipeline(t *testing.T, opts ...retriever.Option) pipeline {
	t.Helper()
	store := vectorstore.New(memory.NewStorage(), hashing.NewEmbedder(embedding.WithDimension(4096)))
	r, err := retriever.New(store, nil, opts...)
	require.NoError(t, err)
	backend := &countingBackend{reply: "grounded answer"}
	ans, err := answer.New(backend)
	require.NoError(t, err)
	o := NewOrchestrator(r, assembler.New(assembler.DefaultMaxChars), ans)
	return pipeline{
		store:   store,
		backend: backend,
		ask:     func(q string) string { return o.Ask(context.Background(), q) },
	}
}

func review(id, entity, text string) domain.Record {
	return domain.Record{Text: text, Metadata: domain.Metadata{
		EntityName: entity, Category: domain.CategoryIT, Kind: domain.KindReview,
		Sentiment: domain.SentimentNeutral, RecordID: id,
	}}
}

func TestPipeline_SingleRecordIsTopResult(t *testing.T) {
	p := newPipeline(t)
	rec := review("acme-1", "Acme Corp", "Acme Corp offers unlimited vacation")
	require.NoError(t, p.store.Index(context.Background(), []domain.Record{rec}, vectorstore.IndexReplace))

	res, err := p.store.SimilaritySearch(context.Background(), "vacation policy", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, rec, res[0].Record)

	assert.Equal(t, "grounded answer", p.ask("vacation policy"))
	assert.Equal(t, 1, p.backend.calls)
	assert.Contains(t, p.backend.prompt, "[Acme Corp]\nAcme Corp offers unlimited vacation")
}

func TestPipeline_EmptyStoreDeclinesWithoutGeneration(t *testing.T) {
	p := newPipeline(t)
	require.NoError(t, p.store.Index(context.Background(), nil, vectorstore.IndexReplace))

	assert.Equal(t, prompt.DefaultDeclinePhrase, p.ask("복지가 좋은 회사는 어디야?"))
	assert.Equal(t, 0, p.backend.calls)
}

func TestPipeline_DiversityPrefersDistinctRecord(t *testing.T) {
	p := newPipeline(t,
		retriever.WithPolicy(retriever.PolicyMMR),
		retriever.WithK(2),
		retriever.WithLambdaMult(0))
	records := []domain.Record{
		review("a1", "Acme Corp", "Acme Corp offers unlimited vacation days"),
		review("a2", "Acme Corp", "Acme Corp offers unlimited vacation days too"),
		review("b1", "Beta Inc", "Beta Inc has a strict vacation policy"),
	}
	require.NoError(t, p.store.Index(context.Background(), records, vectorstore.IndexReplace))

	p.ask("Acme unlimited vacation days")
	require.Equal(t, 1, p.backend.calls)
	assert.Contains(t, p.backend.prompt, "Beta Inc has a strict vacation policy")
	bothDuplicates := strings.Contains(p.backend.prompt, "vacation days\n") &&
		strings.Contains(p.backend.prompt, "vacation days too")
	assert.False(t, bothDuplicates)
}

func TestIndexer_IngestFeeds(t *testing.T) {
	dir := t.TempDir()
	five := 5
	items := []feed.Item{
		{CompanyName: "Acme Corp", Industry: "IT/웹/통신", Type: "review", DataID: "1_R", Content: "Acme Corp offers unlimited vacation", Score: &five},
		{CompanyName: "Beta Inc", Industry: "교육업", Type: "interview", DataID: "2_I", Content: "면접 질문: 자기소개 답변/후기: 친절함"},
	}
	f, err := os.Create(filepath.Join(dir, "cleaned.json"))
	require.NoError(t, err)
	require.NoError(t, feed.Write(f, items))
	require.NoError(t, f.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	store := vectorstore.New(memory.NewStorage(), hashing.NewEmbedder())
	n, err := NewIndexer(store, nil).IngestFeeds(context.Background(), []string{filepath.Join(dir, "*")}, vectorstore.IndexReplace)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	m, err := store.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count)
}

func TestIndexer_NoFeeds(t *testing.T) {
	store := vectorstore.New(memory.NewStorage(), hashing.NewEmbedder())
	_, err := NewIndexer(store, nil).IngestFeeds(context.Background(), []string{filepath.Join(t.TempDir(), "*.json")}, vectorstore.IndexReplace)
	assert.Error(t, err)
}

func TestIndexer_BuildFailureKeepsStore(t *testing.T) {
	store := vectorstore.New(memory.NewStorage(), hashing.NewEmbedder())
	require.NoError(t, store.Index(context.Background(), []domain.Record{review("x", "X", "existing")}, vectorstore.IndexReplace))

	err := store.Index(context.Background(), []domain.Record{review("d", "D", "a"), review("d", "D", "b")}, vectorstore.IndexReplace)
	var buildErr *domain.StoreBuildError
	require.True(t, errors.As(err, &buildErr))

	m, err := store.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count)
}
