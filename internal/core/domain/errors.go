package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad marks an unreadable or undecodable source document. Fatal for
	// that document only.
	ErrLoad = errors.New("document load failure")
	// ErrEmbedding marks an unavailable embedding provider. Fatal for the
	// current call, never silently skipped.
	ErrEmbedding = errors.New("embedding failure")
	// ErrDimensionMismatch marks a vector whose length differs from the
	// store-wide configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrStore marks a store connection or query failure. Search degrades to
	// the local fallback path; Ingest fails.
	ErrStore = errors.New("store failure")
	// ErrRerank marks a reranker failure. Non-fatal: search falls back to
	// the fused ordering.
	ErrRerank = errors.New("rerank failure")
	// ErrConfig marks invalid configuration. Fails fast at startup.
	ErrConfig = errors.New("invalid configuration")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
