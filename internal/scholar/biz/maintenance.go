package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/kart-io/scholar-x/internal/model"
	"github.com/kart-io/scholar-x/internal/pkg/textutil"
	"github.com/kart-io/scholar-x/internal/scholar/store"
)

// previewChars bounds the chunk preview returned by List.
const previewChars = 120

// MaintenanceConfig names the collections under maintenance.
type MaintenanceConfig struct {
	FineCollection   string
	CoarseCollection string
}

// Maintenance provides the collection housekeeping operations.
type Maintenance struct {
	store store.VectorStore
	cfg   MaintenanceConfig
}

// NewMaintenance creates a Maintenance.
func NewMaintenance(st store.VectorStore, cfg MaintenanceConfig) *Maintenance {
	return &Maintenance{store: st, cfg: cfg}
}

// Count returns the chunk count of each collection.
func (m *Maintenance) Count(ctx context.Context) (*model.ChunkCounts, error) {
	fine, err := m.store.Count(ctx, m.cfg.FineCollection)
	if err != nil {
		return nil, wrap(KindStorage, "count", "", err)
	}
	coarse, err := m.store.Count(ctx, m.cfg.CoarseCollection)
	if err != nil {
		return nil, wrap(KindStorage, "count", "", err)
	}
	return &model.ChunkCounts{Fine: fine, Coarse: coarse}, nil
}

// List returns up to limit chunks of one granularity, unranked.
func (m *Maintenance) List(ctx context.Context, granularity string, limit int) ([]*model.ChunkInfo, error) {
	collection, err := m.collectionFor(granularity)
	if err != nil {
		return nil, err
	}

	records, err := m.store.List(ctx, collection, limit)
	if err != nil {
		return nil, wrap(KindStorage, "list", "", err)
	}

	infos := make([]*model.ChunkInfo, len(records))
	for i, rec := range records {
		infos[i] = &model.ChunkInfo{
			ChunkID:     rec.ChunkID,
			DocumentID:  rec.DocumentID,
			Granularity: granularity,
			Position:    rec.Position,
			CharLen:     rec.CharLen,
			TokenLen:    rec.TokenLen,
			Preview:     textutil.TruncateString(rec.Text, previewChars),
			IngestedAt:  rec.IngestedAt,
		}
	}
	return infos, nil
}

// DeleteDocument removes a document's chunks from both collections.
func (m *Maintenance) DeleteDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return failf(KindValidation, "delete", "", "document id is required")
	}
	if err := m.store.DeleteByDocument(ctx, m.cfg.FineCollection, documentID); err != nil {
		return wrap(KindStorage, "delete", documentID, err)
	}
	if err := m.store.DeleteByDocument(ctx, m.cfg.CoarseCollection, documentID); err != nil {
		return wrap(KindStorage, "delete", documentID, err)
	}
	logger.Infow("document chunks deleted", "document_id", documentID)
	return nil
}

// DeleteAll empties both collections.
func (m *Maintenance) DeleteAll(ctx context.Context) error {
	if err := m.store.DeleteAll(ctx, m.cfg.FineCollection); err != nil {
		return wrap(KindStorage, "delete-all", "", err)
	}
	if err := m.store.DeleteAll(ctx, m.cfg.CoarseCollection); err != nil {
		return wrap(KindStorage, "delete-all", "", err)
	}
	logger.Infow("all chunks deleted")
	return nil
}

// CleanShortChunks removes chunks shorter than minChars characters from
// both collections and returns the number removed. Short chunks are
// usually normalization residue (stray captions, footer fragments) and
// add noise to retrieval.
func (m *Maintenance) CleanShortChunks(ctx context.Context, minChars int) (int, error) {
	if minChars <= 0 {
		return 0, failf(KindValidation, "clean", "", "min chars must be positive")
	}

	total := 0
	for _, collection := range []string{m.cfg.FineCollection, m.cfg.CoarseCollection} {
		removed, err := m.cleanCollection(ctx, collection, minChars)
		if err != nil {
			return total, err
		}
		total += removed
	}

	logger.Infow("short chunks cleaned", "min_chars", minChars, "removed", total)
	return total, nil
}

func (m *Maintenance) cleanCollection(ctx context.Context, collection string, minChars int) (int, error) {
	records, err := m.store.List(ctx, collection, 0)
	if err != nil {
		return 0, wrap(KindStorage, "clean", "", err)
	}

	var short []string
	for _, rec := range records {
		if rec.CharLen < minChars {
			short = append(short, rec.ChunkID)
		}
	}
	if len(short) == 0 {
		return 0, nil
	}

	if err := m.store.DeleteByChunkIDs(ctx, collection, short); err != nil {
		return 0, wrap(KindStorage, "clean", "", err)
	}
	return len(short), nil
}

func (m *Maintenance) collectionFor(granularity string) (string, error) {
	switch granularity {
	case model.GranularityFine:
		return m.cfg.FineCollection, nil
	case model.GranularityCoarse:
		return m.cfg.CoarseCollection, nil
	}
	return "", failf(KindValidation, "list", "", "unknown granularity %q", granularity)
}
