package biz

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/scholar-x/internal/model"
	"github.com/kart-io/scholar-x/internal/scholar/chunk"
	"github.com/kart-io/scholar-x/internal/scholar/store"
	"github.com/kart-io/scholar-x/pkg/llm/tokenizer"
)

const (
	testFineCollection   = "fine_chunks"
	testCoarseCollection = "coarse_chunks"
)

func testWriterConfig() WriterConfig {
	return WriterConfig{
		FineCollection:   testFineCollection,
		CoarseCollection: testCoarseCollection,
		Fine:             chunk.FineConfig{MinChars: 20, MaxChars: 120, MaxSentences: 3},
		Coarse:           chunk.CoarseConfig{MinChars: 100, MaxChars: 400, MinTokens: 10, MaxTokens: 80, OverlapChars: 50},
		EmbedBatchSize:   4,
	}
}

func newTestStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.EnsureCollection(context.Background(), testFineCollection, 8))
	require.NoError(t, st.EnsureCollection(context.Background(), testCoarseCollection, 8))
	return st
}

func newTestPool(t *testing.T) *ants.Pool {
	t.Helper()
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	t.Cleanup(pool.Release)
	return pool
}

func paperText() string {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteString("Attention mechanisms let a model focus on relevant parts of the input sequence. ")
		b.WriteString("The transformer architecture removes recurrence entirely in favor of attention. ")
	}
	return b.String()
}

func testDoc() *model.Document {
	return &model.Document{
		ID:      "1706.03762",
		Title:   "Attention Is All You Need",
		Authors: []string{"Ashish Vaswani"},
		Year:    2017,
		ArxivID: "1706.03762",
	}
}

func TestIngestWritesBothGranularities(t *testing.T) {
	st := newTestStore(t)
	w := NewWriter(st, &fakeEmbedder{}, tokenizer.New(), newTestPool(t), testWriterConfig())

	res, err := w.Ingest(context.Background(), testDoc(), paperText())
	require.NoError(t, err)

	assert.Equal(t, "1706.03762", res.DocumentID)
	assert.Positive(t, res.FineChunks)
	assert.Positive(t, res.CoarseChunks)

	fine, err := st.Count(context.Background(), testFineCollection)
	require.NoError(t, err)
	assert.Equal(t, int64(res.FineChunks), fine)

	coarse, err := st.Count(context.Background(), testCoarseCollection)
	require.NoError(t, err)
	assert.Equal(t, int64(res.CoarseChunks), coarse)

	records, err := st.List(context.Background(), testFineCollection, 0)
	require.NoError(t, err)
	for _, rec := range records {
		assert.Equal(t, "vaswani2017attention", rec.CitationKey)
		assert.Positive(t, rec.TokenLen, "fine records carry token lengths")
		assert.Len(t, rec.Embedding, 8)
	}
}

func TestReingestReplacesChunks(t *testing.T) {
	st := newTestStore(t)
	w := NewWriter(st, &fakeEmbedder{}, tokenizer.New(), newTestPool(t), testWriterConfig())

	first, err := w.Ingest(context.Background(), testDoc(), paperText())
	require.NoError(t, err)
	second, err := w.Ingest(context.Background(), testDoc(), paperText())
	require.NoError(t, err)

	assert.Equal(t, first.FineChunks, second.FineChunks)

	fine, err := st.Count(context.Background(), testFineCollection)
	require.NoError(t, err)
	assert.Equal(t, int64(second.FineChunks), fine, "re-ingest must not duplicate chunks")
}

func TestPartialInsertRollsBack(t *testing.T) {
	st := newTestStore(t)
	failing := &failingStore{VectorStore: st, failInsertOn: testCoarseCollection}
	w := NewWriter(failing, &fakeEmbedder{}, tokenizer.New(), newTestPool(t), testWriterConfig())

	_, err := w.Ingest(context.Background(), testDoc(), paperText())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindStorage))

	fine, err := st.Count(context.Background(), testFineCollection)
	require.NoError(t, err)
	assert.Zero(t, fine, "fine half must be rolled back when the coarse insert fails")
}

func TestEmbeddingFailureAbortsBeforeStorage(t *testing.T) {
	st := newTestStore(t)
	embedder := &fakeEmbedder{err: errors.New("model offline")}
	w := NewWriter(st, embedder, tokenizer.New(), newTestPool(t), testWriterConfig())

	_, err := w.Ingest(context.Background(), testDoc(), paperText())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindEmbedding))

	fine, err := st.Count(context.Background(), testFineCollection)
	require.NoError(t, err)
	assert.Zero(t, fine)
	coarse, err := st.Count(context.Background(), testCoarseCollection)
	require.NoError(t, err)
	assert.Zero(t, coarse)
}

func TestIngestValidation(t *testing.T) {
	st := newTestStore(t)
	w := NewWriter(st, &fakeEmbedder{}, tokenizer.New(), newTestPool(t), testWriterConfig())

	_, err := w.Ingest(context.Background(), nil, paperText())
	assert.True(t, IsKind(err, KindValidation))

	_, err = w.Ingest(context.Background(), &model.Document{}, paperText())
	assert.True(t, IsKind(err, KindValidation))

	_, err = w.Ingest(context.Background(), testDoc(), "   \n\n  ")
	assert.True(t, IsKind(err, KindValidation))
}

func TestConcurrentIngestSameDocument(t *testing.T) {
	st := newTestStore(t)
	w := NewWriter(st, &fakeEmbedder{}, tokenizer.New(), newTestPool(t), testWriterConfig())

	var wg sync.WaitGroup
	results := make([]*model.IngestResult, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = w.Ingest(context.Background(), testDoc(), paperText())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	fine, err := st.Count(context.Background(), testFineCollection)
	require.NoError(t, err)
	assert.Equal(t, int64(results[0].FineChunks), fine, "concurrent ingests of one document must not interleave")
}
