package biz

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kart-io/scholar-x/internal/model"
	"github.com/kart-io/scholar-x/internal/pkg/textutil"
	"github.com/kart-io/scholar-x/internal/scholar/metrics"
	"github.com/kart-io/scholar-x/internal/scholar/store"
	"github.com/kart-io/scholar-x/pkg/llm"
)

// Snippet bounds for citation results: cut at snippetMaxChars, then pull
// back to the last word boundary past snippetSoftChars.
const (
	snippetMaxChars  = 300
	snippetSoftChars = 250
)

// citationCandidates is how many fine chunks are fetched for the top-1
// citation decision.
const citationCandidates = 3

// RetrieverConfig bounds the retrieval router.
type RetrieverConfig struct {
	FineCollection   string
	CoarseCollection string
	// CitationThreshold is the minimum top-1 similarity for a citation
	// match; the comparison is inclusive.
	CitationThreshold float64
	// TopK is the result count used when the caller passes k < 1.
	TopK int
}

// Retriever routes queries to the fine collection, the coarse collection
// or both.
type Retriever struct {
	store    store.VectorStore
	embedder llm.EmbeddingProvider
	cfg      RetrieverConfig
}

// NewRetriever creates a Retriever.
func NewRetriever(st store.VectorStore, embedder llm.EmbeddingProvider, cfg RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Retriever{store: st, embedder: embedder, cfg: cfg}
}

// SearchCitation finds the paper most similar to a passage and decides
// whether it clears the citation threshold. Paper is nil on a miss; an
// empty corpus is a miss, not an error.
func (r *Retriever) SearchCitation(ctx context.Context, text string) (*model.CitationSuggestion, error) {
	if strings.TrimSpace(text) == "" {
		return nil, failf(KindValidation, "citation", "", "text is required")
	}

	vector, err := r.embedQuery(ctx, text)
	if err != nil {
		return nil, wrap(KindEmbedding, "citation", "", err)
	}

	hits, err := r.store.Search(ctx, r.cfg.FineCollection, vector, citationCandidates)
	if err != nil {
		return nil, wrap(KindStorage, "citation", "", err)
	}
	if len(hits) == 0 {
		return &model.CitationSuggestion{Match: false}, nil
	}

	best := hits[0]
	suggestion := &model.CitationSuggestion{Score: best.Score}
	if float64(best.Score) >= r.cfg.CitationThreshold {
		rec := best.Record
		suggestion.Match = true
		suggestion.Paper = &model.PaperRef{
			Title:       rec.Title,
			Authors:     rec.Authors,
			CitationKey: rec.CitationKey,
			BibTeX:      rec.BibTeX,
			Snippet:     textutil.Snippet(rec.Text, snippetMaxChars, snippetSoftChars),
			SourceURL:   rec.SourceURL,
		}
	}
	return suggestion, nil
}

// Search dispatches a context search to the route selected by mode.
func (r *Retriever) Search(ctx context.Context, query string, mode model.SearchMode, k int) ([]*model.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, failf(KindValidation, "search", "", "query is required")
	}
	if !mode.Valid() {
		return nil, failf(KindValidation, "search", "", "unknown search mode %q", mode)
	}
	if k <= 0 {
		k = r.cfg.TopK
	}

	switch mode {
	case model.SearchFine:
		return r.searchSingle(ctx, query, r.cfg.FineCollection, model.GranularityFine, k)
	case model.SearchCoarse:
		return r.searchSingle(ctx, query, r.cfg.CoarseCollection, model.GranularityCoarse, k)
	default:
		return r.searchCombined(ctx, query, k)
	}
}

// SearchFine searches the fine collection only.
func (r *Retriever) SearchFine(ctx context.Context, query string, k int) ([]*model.SearchHit, error) {
	return r.Search(ctx, query, model.SearchFine, k)
}

// SearchCoarse searches the coarse collection only.
func (r *Retriever) SearchCoarse(ctx context.Context, query string, k int) ([]*model.SearchHit, error) {
	return r.Search(ctx, query, model.SearchCoarse, k)
}

// SearchCombined queries both collections concurrently and merges the
// branches after per-branch min-max score normalization, so raw scores
// from differently sized chunks do not dominate the merge.
func (r *Retriever) SearchCombined(ctx context.Context, query string, k int) ([]*model.SearchHit, error) {
	return r.Search(ctx, query, model.SearchCombined, k)
}

func (r *Retriever) searchSingle(ctx context.Context, query, collection, granularity string, k int) ([]*model.SearchHit, error) {
	vector, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, wrap(KindEmbedding, "search", "", err)
	}
	hits, err := r.searchCollection(ctx, vector, collection, granularity, k)
	if err != nil {
		return nil, err
	}
	sortHits(hits)
	return hits, nil
}

func (r *Retriever) searchCombined(ctx context.Context, query string, k int) ([]*model.SearchHit, error) {
	vector, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, wrap(KindEmbedding, "search", "", err)
	}

	var fineHits, coarseHits []*model.SearchHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := r.searchCollection(gctx, vector, r.cfg.FineCollection, model.GranularityFine, k)
		fineHits = hits
		return err
	})
	g.Go(func() error {
		hits, err := r.searchCollection(gctx, vector, r.cfg.CoarseCollection, model.GranularityCoarse, k)
		coarseHits = hits
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	normalizeScores(fineHits)
	normalizeScores(coarseHits)

	merged := make([]*model.SearchHit, 0, len(fineHits)+len(coarseHits))
	merged = append(merged, fineHits...)
	merged = append(merged, coarseHits...)
	sortHits(merged)

	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

func (r *Retriever) embedQuery(ctx context.Context, text string) ([]float32, error) {
	began := time.Now()
	vector, err := r.embedder.EmbedSingle(ctx, text)
	metrics.Get().RecordEmbedding(time.Since(began), err)
	return vector, err
}

func (r *Retriever) searchCollection(ctx context.Context, vector []float32, collection, granularity string, k int) ([]*model.SearchHit, error) {
	raw, err := r.store.Search(ctx, collection, vector, k)
	if err != nil {
		return nil, wrap(KindStorage, "search", "", err)
	}
	hits := make([]*model.SearchHit, len(raw))
	for i, h := range raw {
		hits[i] = hitFromRecord(h.Record, h.Score, granularity)
	}
	return hits, nil
}

func hitFromRecord(rec *store.Record, score float32, granularity string) *model.SearchHit {
	return &model.SearchHit{
		ChunkID:     rec.ChunkID,
		DocumentID:  rec.DocumentID,
		Granularity: granularity,
		Position:    rec.Position,
		Text:        rec.Text,
		Title:       rec.Title,
		Authors:     rec.Authors,
		CitationKey: rec.CitationKey,
		SourceURL:   rec.SourceURL,
		IngestedAt:  rec.IngestedAt,
		Score:       score,
	}
}

// normalizeScores rescales a branch's scores to [0, 1] in place. A branch
// with a single hit, or with uniform scores, maps to 1.0 so it is not
// zeroed out of the merge.
func normalizeScores(hits []*model.SearchHit) {
	if len(hits) == 0 {
		return
	}
	lo, hi := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < lo {
			lo = h.Score
		}
		if h.Score > hi {
			hi = h.Score
		}
	}
	if hi == lo {
		for _, h := range hits {
			h.Score = 1
		}
		return
	}
	for _, h := range hits {
		h.Score = (h.Score - lo) / (hi - lo)
	}
}

// sortHits orders by score descending, breaking ties by document recency
// and then position.
func sortHits(hits []*model.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].IngestedAt != hits[j].IngestedAt {
			return hits[i].IngestedAt > hits[j].IngestedAt
		}
		return hits[i].Position < hits[j].Position
	})
}
