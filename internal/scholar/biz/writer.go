package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/kart-io/scholar-x/internal/model"
	"github.com/kart-io/scholar-x/internal/scholar/chunk"
	"github.com/kart-io/scholar-x/internal/scholar/metrics"
	"github.com/kart-io/scholar-x/internal/scholar/store"
	"github.com/kart-io/scholar-x/pkg/id"
	"github.com/kart-io/scholar-x/pkg/llm"
	"github.com/kart-io/scholar-x/pkg/llm/tokenizer"
)

// WriterConfig bounds the dual-index writer.
type WriterConfig struct {
	FineCollection   string
	CoarseCollection string
	Fine             chunk.FineConfig
	Coarse           chunk.CoarseConfig
	// EmbedBatchSize caps the number of texts per embedding request.
	EmbedBatchSize int
}

// Writer ingests papers into both chunk collections. Re-ingesting a
// document id replaces its chunks; a document is never left indexed at
// only one granularity.
type Writer struct {
	store    store.VectorStore
	embedder llm.EmbeddingProvider
	tokens   *tokenizer.Counter
	pool     *ants.Pool
	gen      *id.Generator
	locks    *docLocks
	cfg      WriterConfig
}

// NewWriter creates a Writer. The ants pool is shared with other
// embedding users and sized by the caller.
func NewWriter(st store.VectorStore, embedder llm.EmbeddingProvider, tokens *tokenizer.Counter, pool *ants.Pool, cfg WriterConfig) *Writer {
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 32
	}
	return &Writer{
		store:    st,
		embedder: embedder,
		tokens:   tokens,
		pool:     pool,
		gen:      id.NewGenerator(),
		locks:    newDocLocks(),
		cfg:      cfg,
	}
}

// Ingest normalizes and chunks rawText at both granularities, embeds the
// chunks and replaces the document's entries in both collections.
func (w *Writer) Ingest(ctx context.Context, doc *model.Document, rawText string) (*model.IngestResult, error) {
	if doc == nil || doc.ID == "" {
		return nil, failf(KindValidation, "ingest", "", "document id is required")
	}

	normalized := chunk.Normalize(rawText)
	if normalized == "" {
		return nil, failf(KindValidation, "normalize", doc.ID, "document text is empty after normalization")
	}

	fineChunks := chunk.Fine(normalized, w.cfg.Fine)
	coarseChunks := chunk.Coarse(normalized, w.cfg.Coarse, w.tokens.Count)
	if len(fineChunks) == 0 || len(coarseChunks) == 0 {
		return nil, failf(KindValidation, "chunk", doc.ID, "document produced no chunks")
	}

	// Embedding failures abort the ingestion before any storage write, so
	// both vectors sets are computed up front, concurrently.
	var fineVecs, coarseVecs [][]float32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vecs, err := w.embedAll(gctx, chunkTexts(fineChunks))
		fineVecs = vecs
		return err
	})
	g.Go(func() error {
		vecs, err := w.embedAll(gctx, chunkTexts(coarseChunks))
		coarseVecs = vecs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, wrap(KindEmbedding, "embed", doc.ID, err)
	}

	ingestedAt := time.Now().Unix()
	fineRecords := w.buildRecords(doc, fineChunks, fineVecs, ingestedAt, true)
	coarseRecords := w.buildRecords(doc, coarseChunks, coarseVecs, ingestedAt, false)

	w.locks.lock(doc.ID)
	defer w.locks.unlock(doc.ID)

	// Idempotent replace: clear both collections before inserting.
	if err := w.store.DeleteByDocument(ctx, w.cfg.FineCollection, doc.ID); err != nil {
		return nil, wrap(KindStorage, "delete-existing", doc.ID, err)
	}
	if err := w.store.DeleteByDocument(ctx, w.cfg.CoarseCollection, doc.ID); err != nil {
		return nil, wrap(KindStorage, "delete-existing", doc.ID, err)
	}

	if err := w.store.Insert(ctx, w.cfg.FineCollection, fineRecords); err != nil {
		return nil, wrap(KindStorage, "insert-fine", doc.ID, err)
	}
	if err := w.store.Insert(ctx, w.cfg.CoarseCollection, coarseRecords); err != nil {
		// Roll back the fine half so the document is not searchable at one
		// granularity only.
		if derr := w.store.DeleteByDocument(ctx, w.cfg.FineCollection, doc.ID); derr != nil {
			logger.Errorw("compensating delete failed, fine collection may hold orphaned chunks",
				"document_id", doc.ID, "error", derr.Error())
		}
		return nil, wrap(KindStorage, "insert-coarse", doc.ID, err)
	}

	logger.Infow("document ingested",
		"document_id", doc.ID,
		"title", doc.Title,
		"fine_chunks", len(fineRecords),
		"coarse_chunks", len(coarseRecords),
	)

	return &model.IngestResult{
		DocumentID:   doc.ID,
		Title:        doc.Title,
		FineChunks:   len(fineRecords),
		CoarseChunks: len(coarseRecords),
	}, nil
}

// embedAll embeds texts in batches on the shared pool and returns vectors
// index-aligned with the input.
func (w *Writer) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vecs := make([][]float32, len(texts))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	for start := 0; start < len(texts); start += w.cfg.EmbedBatchSize {
		end := min(start+w.cfg.EmbedBatchSize, len(texts))
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if failed() || ctx.Err() != nil {
				return
			}
			began := time.Now()
			batch, err := w.embedder.Embed(ctx, texts[start:end])
			metrics.Get().RecordEmbedding(time.Since(began), err)
			if err == nil && len(batch) != end-start {
				err = fmt.Errorf("embedding count mismatch: got %d, want %d", len(batch), end-start)
			}
			if err != nil {
				setErr(err)
				return
			}
			copy(vecs[start:end], batch)
		}
		if err := w.pool.Submit(task); err != nil {
			wg.Done()
			setErr(fmt.Errorf("submit embedding batch: %w", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vecs, nil
}

// buildRecords materializes store records from chunks. Fine chunks carry
// no token length out of the chunker, so it is filled here.
func (w *Writer) buildRecords(doc *model.Document, chunks []chunk.Chunk, vecs [][]float32, ingestedAt int64, fine bool) []*store.Record {
	chunkIDs := w.gen.NewULIDs(len(chunks))
	records := make([]*store.Record, len(chunks))
	for i, c := range chunks {
		tokenLen := c.TokenLen
		if fine && tokenLen == 0 {
			tokenLen = w.tokens.Count(c.Text)
		}
		records[i] = &store.Record{
			ChunkID:     chunkIDs[i],
			DocumentID:  doc.ID,
			Text:        c.Text,
			Position:    c.Position,
			CharLen:     c.CharLen,
			TokenLen:    tokenLen,
			IngestedAt:  ingestedAt,
			Title:       doc.Title,
			Authors:     doc.AuthorList(),
			CitationKey: doc.CitationKey(),
			BibTeX:      doc.BibTeX(),
			SourceURL:   doc.SourceURL,
			Embedding:   vecs[i],
		}
	}
	return records
}

func chunkTexts(chunks []chunk.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}
