package biz

import (
	"context"

	"github.com/panjf2000/ants/v2"

	"github.com/kart-io/scholar-x/internal/model"
	"github.com/kart-io/scholar-x/internal/scholar/chunk"
	"github.com/kart-io/scholar-x/internal/scholar/extract"
	"github.com/kart-io/scholar-x/internal/scholar/store"
	"github.com/kart-io/scholar-x/pkg/llm"
	"github.com/kart-io/scholar-x/pkg/llm/tokenizer"
)

// ServiceConfig aggregates the pipeline configuration.
type ServiceConfig struct {
	FineCollection   string
	CoarseCollection string
	EmbeddingDim     int

	Fine   chunk.FineConfig
	Coarse chunk.CoarseConfig

	CitationThreshold float64
	TopK              int
	MinChunkChars     int
	EmbedBatchSize    int

	AnswerPrompt string
}

// embeddingCache is the optional cache surface of a wrapped embedding
// provider (see llm.CachedEmbeddingProvider).
type embeddingCache interface {
	CacheStats(ctx context.Context) (map[string]any, error)
	ClearCache(ctx context.Context) error
}

// Service is the façade over the retrieval pipeline, owning the writer,
// the router, the answerer and collection maintenance.
type Service struct {
	store     store.VectorStore
	extractor extract.Extractor
	embedder  llm.EmbeddingProvider

	Writer      *Writer
	Retriever   *Retriever
	Answerer    *Answerer
	Maintenance *Maintenance

	cfg ServiceConfig
}

// NewService wires the pipeline. The ants pool is owned by the caller
// (released on shutdown); chat may be nil when answer synthesis is not
// configured.
func NewService(
	st store.VectorStore,
	extractor extract.Extractor,
	embedder llm.EmbeddingProvider,
	chat llm.ChatProvider,
	pool *ants.Pool,
	cfg ServiceConfig,
) *Service {
	tokens := tokenizer.New()

	writer := NewWriter(st, embedder, tokens, pool, WriterConfig{
		FineCollection:   cfg.FineCollection,
		CoarseCollection: cfg.CoarseCollection,
		Fine:             cfg.Fine,
		Coarse:           cfg.Coarse,
		EmbedBatchSize:   cfg.EmbedBatchSize,
	})
	retriever := NewRetriever(st, embedder, RetrieverConfig{
		FineCollection:    cfg.FineCollection,
		CoarseCollection:  cfg.CoarseCollection,
		CitationThreshold: cfg.CitationThreshold,
		TopK:              cfg.TopK,
	})
	maintenance := NewMaintenance(st, MaintenanceConfig{
		FineCollection:   cfg.FineCollection,
		CoarseCollection: cfg.CoarseCollection,
	})

	var answerer *Answerer
	if chat != nil {
		answerer = NewAnswerer(retriever, chat, AnswererConfig{
			PromptTemplate: cfg.AnswerPrompt,
			TopK:           cfg.TopK,
		})
	}

	return &Service{
		store:       st,
		extractor:   extractor,
		embedder:    embedder,
		Writer:      writer,
		Retriever:   retriever,
		Answerer:    answerer,
		Maintenance: maintenance,
		cfg:         cfg,
	}
}

// EnsureCollections creates both chunk collections if missing. Called
// once at startup.
func (s *Service) EnsureCollections(ctx context.Context) error {
	if err := s.store.EnsureCollection(ctx, s.cfg.FineCollection, s.cfg.EmbeddingDim); err != nil {
		return wrap(KindStorage, "ensure-collections", "", err)
	}
	if err := s.store.EnsureCollection(ctx, s.cfg.CoarseCollection, s.cfg.EmbeddingDim); err != nil {
		return wrap(KindStorage, "ensure-collections", "", err)
	}
	return nil
}

// IngestSource extracts a paper from source (arXiv id, arXiv URL or plain
// URL) and ingests it.
func (s *Service) IngestSource(ctx context.Context, source string) (*model.IngestResult, error) {
	if source == "" {
		return nil, failf(KindValidation, "ingest", "", "source is required")
	}
	paper, err := s.extractor.Extract(ctx, source)
	if err != nil {
		return nil, wrap(KindExtraction, "extract", "", err)
	}
	return s.Writer.Ingest(ctx, paper.Document, paper.Text)
}

// IngestText ingests already extracted text with caller-supplied
// metadata.
func (s *Service) IngestText(ctx context.Context, doc *model.Document, text string) (*model.IngestResult, error) {
	return s.Writer.Ingest(ctx, doc, text)
}

// EmbeddingCacheStats reports the embedding cache state. Nil when the
// embedder is not cache-wrapped.
func (s *Service) EmbeddingCacheStats(ctx context.Context) (map[string]any, error) {
	cache, ok := s.embedder.(embeddingCache)
	if !ok {
		return nil, nil
	}
	stats, err := cache.CacheStats(ctx)
	if err != nil {
		return nil, wrap(KindStorage, "cache-stats", "", err)
	}
	return stats, nil
}

// ClearEmbeddingCache drops every cached embedding. Returns false when the
// embedder is not cache-wrapped.
func (s *Service) ClearEmbeddingCache(ctx context.Context) (bool, error) {
	cache, ok := s.embedder.(embeddingCache)
	if !ok {
		return false, nil
	}
	if err := cache.ClearCache(ctx); err != nil {
		return false, wrap(KindStorage, "cache-clear", "", err)
	}
	return true, nil
}

// MinChunkChars returns the configured default cleanup cutoff.
func (s *Service) MinChunkChars() int {
	return s.cfg.MinChunkChars
}

// Close releases the vector store connection.
func (s *Service) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}
