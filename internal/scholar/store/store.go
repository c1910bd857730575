// Package store defines the vector storage abstraction backing the fine
// and coarse chunk collections.
package store

import (
	"context"
)

// Record is one stored chunk with its embedding and paper provenance.
type Record struct {
	// ChunkID is the application-assigned ULID of the chunk.
	ChunkID string
	// DocumentID identifies the source paper.
	DocumentID string
	// Text is the chunk content.
	Text string
	// Position is the chunk's 0-based order within its document.
	Position int
	// CharLen is the content length in Unicode characters.
	CharLen int
	// TokenLen is the content length in tokens.
	TokenLen int
	// IngestedAt is the Unix timestamp of the ingestion that wrote this
	// record. Used for recency tie-breaking.
	IngestedAt int64

	// Paper provenance, denormalized onto every chunk.
	Title       string
	Authors     string
	CitationKey string
	BibTeX      string
	SourceURL   string

	// Embedding is the chunk vector.
	Embedding []float32
}

// Hit is a record returned by a similarity search.
type Hit struct {
	Record *Record
	// Score is the cosine similarity to the query vector.
	Score float32
}

// VectorStore is the storage contract shared by both chunk collections.
// Implementations must be safe for concurrent use.
type VectorStore interface {
	// EnsureCollection creates the named collection with the given vector
	// dimension if it does not exist yet.
	EnsureCollection(ctx context.Context, name string, dim int) error

	// Insert writes records into a collection.
	Insert(ctx context.Context, collection string, records []*Record) error

	// Search returns the topK records most similar to the query vector,
	// ordered by descending score. An empty collection yields an empty
	// result, not an error.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]*Hit, error)

	// DeleteByDocument removes every chunk of a document.
	DeleteByDocument(ctx context.Context, collection, documentID string) error

	// DeleteByChunkIDs removes the listed chunks.
	DeleteByChunkIDs(ctx context.Context, collection string, chunkIDs []string) error

	// DeleteAll removes every chunk in a collection.
	DeleteAll(ctx context.Context, collection string) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context, collection string) (int64, error)

	// List returns up to limit stored records without ranking.
	// limit <= 0 means no application-imposed limit.
	List(ctx context.Context, collection string, limit int) ([]*Record, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
