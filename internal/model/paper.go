// Package model defines the shared domain types of the scholar service.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Chunk granularities. Every stored chunk belongs to exactly one.
const (
	GranularityFine   = "fine"
	GranularityCoarse = "coarse"
)

// SearchMode selects the retrieval route for a context search.
type SearchMode string

const (
	SearchFine     SearchMode = "fine"
	SearchCoarse   SearchMode = "coarse"
	SearchCombined SearchMode = "combined"
)

// Valid reports whether the mode is one of the supported routes.
func (m SearchMode) Valid() bool {
	switch m {
	case SearchFine, SearchCoarse, SearchCombined:
		return true
	}
	return false
}

// Document is the paper-level provenance attached to every chunk.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Authors    []string  `json:"authors"`
	Year       int       `json:"year,omitempty"`
	ArxivID    string    `json:"arxiv_id,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	IngestedAt time.Time `json:"ingested_at,omitempty"`
}

// AuthorList renders the author slice as a single comma-separated field.
func (d *Document) AuthorList() string {
	return strings.Join(d.Authors, ", ")
}

func (d *Document) yearString() string {
	if d.Year <= 0 {
		return "xxxx"
	}
	return fmt.Sprintf("%d", d.Year)
}

func (d *Document) hasFullMetadata() bool {
	return len(d.Authors) > 0 && d.Authors[0] != "" && d.Authors[0] != "Unknown" &&
		d.Year > 0 && d.Title != "" && d.Title != "Unknown Title"
}

// CitationKey derives a stable cite key of the form
// <firstauthorlastname><year><firstwordoftitle>, falling back to the arXiv
// id and finally to a truncated underscored title when metadata is missing.
func (d *Document) CitationKey() string {
	if d.hasFullMetadata() {
		parts := strings.Fields(d.Authors[0])
		lastName := parts[len(parts)-1]
		firstWord := strings.Fields(d.Title)[0]
		return strings.ToLower(lastName) + d.yearString() + strings.ToLower(firstWord)
	}
	if d.ArxivID != "" {
		return d.ArxivID
	}
	key := strings.ReplaceAll(d.Title, " ", "_")
	if len(key) > 20 {
		key = key[:20]
	}
	return key
}

// BibTeX renders an @article entry for arXiv papers and an @misc entry
// otherwise.
func (d *Document) BibTeX() string {
	key := d.CitationKey()
	var b strings.Builder
	if d.ArxivID != "" {
		fmt.Fprintf(&b, "@article{%s,\n", key)
		fmt.Fprintf(&b, "  title={ %s },\n", d.Title)
		fmt.Fprintf(&b, "  author={ %s },\n", strings.Join(d.Authors, " and "))
		fmt.Fprintf(&b, "  year={ %s },\n", d.yearString())
		fmt.Fprintf(&b, "  eprint={ %s },\n", d.ArxivID)
		fmt.Fprintf(&b, "  archivePrefix={arXiv},\n")
		fmt.Fprintf(&b, "  url={ https://arxiv.org/abs/%s }\n", d.ArxivID)
	} else {
		fmt.Fprintf(&b, "@misc{%s,\n", key)
		fmt.Fprintf(&b, "  title={ %s },\n", d.Title)
		fmt.Fprintf(&b, "  author={ %s },\n", strings.Join(d.Authors, " and "))
		fmt.Fprintf(&b, "  year={ %s },\n", d.yearString())
		fmt.Fprintf(&b, "  url={ %s }\n", d.SourceURL)
	}
	b.WriteString("}")
	return b.String()
}

// IngestResult reports what a completed ingestion wrote.
type IngestResult struct {
	DocumentID   string `json:"document_id"`
	Title        string `json:"title,omitempty"`
	FineChunks   int    `json:"fine_chunks"`
	CoarseChunks int    `json:"coarse_chunks"`
}

// SearchHit is one ranked chunk returned by a context search.
type SearchHit struct {
	ChunkID     string  `json:"chunk_id"`
	DocumentID  string  `json:"document_id"`
	Granularity string  `json:"granularity"`
	Position    int     `json:"position"`
	Text        string  `json:"text"`
	Title       string  `json:"title,omitempty"`
	Authors     string  `json:"authors,omitempty"`
	CitationKey string  `json:"citation_key,omitempty"`
	SourceURL   string  `json:"source_url,omitempty"`
	IngestedAt  int64   `json:"ingested_at,omitempty"`
	Score       float32 `json:"score"`
}

// PaperRef is the citation payload returned by a citation search.
type PaperRef struct {
	Title       string `json:"title"`
	Authors     string `json:"authors"`
	CitationKey string `json:"citation_key"`
	BibTeX      string `json:"bibtex"`
	Snippet     string `json:"snippet"`
	SourceURL   string `json:"source_url,omitempty"`
}

// CitationSuggestion is the top-1 citation decision for a passage.
// Paper is nil when no candidate cleared the threshold.
type CitationSuggestion struct {
	Match bool      `json:"match"`
	Score float32   `json:"score"`
	Paper *PaperRef `json:"paper,omitempty"`
}

// ChunkCounts holds per-granularity collection sizes.
type ChunkCounts struct {
	Fine   int64 `json:"fine"`
	Coarse int64 `json:"coarse"`
}

// ChunkInfo is the maintenance view of a stored chunk.
type ChunkInfo struct {
	ChunkID     string `json:"chunk_id"`
	DocumentID  string `json:"document_id"`
	Granularity string `json:"granularity"`
	Position    int    `json:"position"`
	CharLen     int    `json:"char_len"`
	TokenLen    int    `json:"token_len"`
	Preview     string `json:"preview"`
	IngestedAt  int64  `json:"ingested_at,omitempty"`
}

// Answer is a synthesized response with its supporting chunks.
type Answer struct {
	Answer  string       `json:"answer"`
	Sources []*SearchHit `json:"sources,omitempty"`
}
