// Package extract turns a paper source (arXiv id, arXiv URL or plain web
// URL) into text plus provenance metadata ready for ingestion.
package extract

import (
	"context"

	"github.com/kart-io/scholar-x/internal/model"
)

// Paper is an extracted document: provenance metadata plus its raw text,
// not yet normalized.
type Paper struct {
	Document *model.Document
	Text     string
}

// Extractor resolves a source string into a Paper.
type Extractor interface {
	Extract(ctx context.Context, source string) (*Paper, error)
}
