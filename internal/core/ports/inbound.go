package ports

import (
	"context"

	"github.com/kirillkom/docsearch/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document ingestion.
type DocumentIngestor interface {
	Ingest(ctx context.Context, path, tenantID string, documentID *int64, metadata map[string]any) (*domain.IngestResult, error)
}

// RetrievalService is the inbound contract for hybrid search and context
// assembly.
type RetrievalService interface {
	Search(ctx context.Context, query, tenantID string, opts domain.SearchOptions) ([]domain.SearchResult, error)
	GenerateContext(results []domain.SearchResult, maxTokens int) (string, []domain.GroundingEntry)
}

// CorpusAdmin is the inbound contract for corpus maintenance.
type CorpusAdmin interface {
	DeleteDocument(ctx context.Context, tenantID string, documentID int64) (int64, error)
	DeleteSource(ctx context.Context, tenantID, sourceFile string) (int64, error)
	Stats(ctx context.Context, tenantID string) (*domain.StoreStats, error)
}
