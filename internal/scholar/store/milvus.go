package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/scholar-x/pkg/component/milvus"
)

// chunkFields are the scalar fields persisted alongside every embedding.
var chunkFields = []string{
	"chunk_id", "document_id", "content", "position", "char_len",
	"token_len", "ingested_at", "title", "authors", "citation_key",
	"bibtex", "source_url",
}

// MilvusStore implements VectorStore on a Milvus deployment.
type MilvusStore struct {
	client *milvus.Client
}

// NewMilvusStore creates a Milvus-backed vector store.
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

var _ VectorStore = (*MilvusStore)(nil)

// EnsureCollection creates the chunk collection schema if missing.
func (s *MilvusStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	schema := &milvus.CollectionSchema{
		Name:        name,
		Description: "scholar paper chunks",
		Dimension:   dim,
		MetaFields: []milvus.MetaField{
			{Name: "chunk_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "document_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "content", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
			{Name: "position", DataType: entity.FieldTypeInt64},
			{Name: "char_len", DataType: entity.FieldTypeInt64},
			{Name: "token_len", DataType: entity.FieldTypeInt64},
			{Name: "ingested_at", DataType: entity.FieldTypeInt64},
			{Name: "title", DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: "authors", DataType: entity.FieldTypeVarChar, MaxLen: 2048},
			{Name: "citation_key", DataType: entity.FieldTypeVarChar, MaxLen: 128},
			{Name: "bibtex", DataType: entity.FieldTypeVarChar, MaxLen: 4096},
			{Name: "source_url", DataType: entity.FieldTypeVarChar, MaxLen: 512},
		},
	}
	if err := s.client.CreateCollection(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure collection %s: %w", name, err)
	}
	return nil
}

// Insert writes records into the collection.
func (s *MilvusStore) Insert(ctx context.Context, collection string, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	n := len(records)
	embeddings := make([][]float32, n)
	metadata := map[string][]any{}
	for _, f := range chunkFields {
		metadata[f] = make([]any, n)
	}

	for i, r := range records {
		embeddings[i] = r.Embedding
		metadata["chunk_id"][i] = r.ChunkID
		metadata["document_id"][i] = r.DocumentID
		metadata["content"][i] = r.Text
		metadata["position"][i] = int64(r.Position)
		metadata["char_len"][i] = int64(r.CharLen)
		metadata["token_len"][i] = int64(r.TokenLen)
		metadata["ingested_at"][i] = r.IngestedAt
		metadata["title"][i] = r.Title
		metadata["authors"][i] = r.Authors
		metadata["citation_key"][i] = r.CitationKey
		metadata["bibtex"][i] = r.BibTeX
		metadata["source_url"][i] = r.SourceURL
	}

	if _, err := s.client.Insert(ctx, collection, &milvus.InsertData{
		Embeddings: embeddings,
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return nil
}

// Search runs a cosine similarity search and maps rows back to records.
func (s *MilvusStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]*Hit, error) {
	results, err := s.client.Search(ctx, collection, vector, topK, chunkFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", collection, err)
	}

	hits := make([]*Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, &Hit{
			Record: recordFromRow(r.Metadata),
			Score:  r.Score,
		})
	}
	return hits, nil
}

// DeleteByDocument removes every chunk belonging to a document.
func (s *MilvusStore) DeleteByDocument(ctx context.Context, collection, documentID string) error {
	expr := fmt.Sprintf("document_id == %q", documentID)
	if err := s.client.DeleteByFilter(ctx, collection, expr); err != nil {
		return fmt.Errorf("failed to delete document %s from %s: %w", documentID, collection, err)
	}
	return nil
}

// DeleteByChunkIDs removes the listed chunks.
func (s *MilvusStore) DeleteByChunkIDs(ctx context.Context, collection string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	quoted := make([]string, len(chunkIDs))
	for i, id := range chunkIDs {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	expr := fmt.Sprintf("chunk_id in [%s]", strings.Join(quoted, ", "))
	if err := s.client.DeleteByFilter(ctx, collection, expr); err != nil {
		return fmt.Errorf("failed to delete chunks from %s: %w", collection, err)
	}
	return nil
}

// DeleteAll removes every chunk in the collection.
func (s *MilvusStore) DeleteAll(ctx context.Context, collection string) error {
	if err := s.client.DeleteByFilter(ctx, collection, `chunk_id != ""`); err != nil {
		return fmt.Errorf("failed to clear %s: %w", collection, err)
	}
	return nil
}

// Count returns the row count of the collection.
func (s *MilvusStore) Count(ctx context.Context, collection string) (int64, error) {
	count, err := s.client.GetCollectionStats(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", collection, err)
	}
	return count, nil
}

// List returns up to limit stored records.
func (s *MilvusStore) List(ctx context.Context, collection string, limit int) ([]*Record, error) {
	rows, err := s.client.QueryByFilter(ctx, collection, `chunk_id != ""`, chunkFields, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	records := make([]*Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordFromRow(row))
	}
	return records, nil
}

// Close closes the underlying Milvus connection.
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func recordFromRow(row map[string]any) *Record {
	return &Record{
		ChunkID:     rowString(row, "chunk_id"),
		DocumentID:  rowString(row, "document_id"),
		Text:        rowString(row, "content"),
		Position:    int(rowInt64(row, "position")),
		CharLen:     int(rowInt64(row, "char_len")),
		TokenLen:    int(rowInt64(row, "token_len")),
		IngestedAt:  rowInt64(row, "ingested_at"),
		Title:       rowString(row, "title"),
		Authors:     rowString(row, "authors"),
		CitationKey: rowString(row, "citation_key"),
		BibTeX:      rowString(row, "bibtex"),
		SourceURL:   rowString(row, "source_url"),
	}
}

func rowString(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func rowInt64(row map[string]any, key string) int64 {
	if v, ok := row[key].(int64); ok {
		return v
	}
	return 0
}
