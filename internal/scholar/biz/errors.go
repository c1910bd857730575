// Package biz implements the retrieval pipeline business logic: dual-index
// ingestion, retrieval routing, answer synthesis and collection
// maintenance.
package biz

import (
	"errors"
	"fmt"
)

// FailureKind classifies pipeline failures by the stage that produced
// them. The HTTP layer maps kinds to status codes.
type FailureKind string

const (
	KindValidation FailureKind = "validation"
	KindExtraction FailureKind = "extraction"
	KindEmbedding  FailureKind = "embedding"
	KindStorage    FailureKind = "storage"
)

// Failure tags an error with its kind, the pipeline stage and, when
// known, the document being processed.
type Failure struct {
	Kind       FailureKind
	Stage      string
	DocumentID string
	Err        error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.DocumentID != "" {
		return fmt.Sprintf("%s failure at %s (document %s): %v", f.Kind, f.Stage, f.DocumentID, f.Err)
	}
	return fmt.Sprintf("%s failure at %s: %v", f.Kind, f.Stage, f.Err)
}

// Unwrap exposes the underlying error to errors.Is/As.
func (f *Failure) Unwrap() error {
	return f.Err
}

// failf builds a tagged failure from a format string.
func failf(kind FailureKind, stage, documentID, format string, args ...any) error {
	return &Failure{
		Kind:       kind,
		Stage:      stage,
		DocumentID: documentID,
		Err:        fmt.Errorf(format, args...),
	}
}

// wrap tags err unless it already carries a kind, preserving the most
// specific classification assigned deepest in the pipeline.
func wrap(kind FailureKind, stage, documentID string, err error) error {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return err
	}
	return &Failure{Kind: kind, Stage: stage, DocumentID: documentID, Err: err}
}

// KindOf returns the failure kind of err, or an empty kind for untagged
// errors.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind FailureKind) bool {
	return KindOf(err) == kind
}
