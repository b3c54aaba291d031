package ports

import (
	"context"

	"github.com/kirillkom/docsearch/internal/core/domain"
)

// DocumentLoader reads a source document and produces normalized plain text
// plus loader-derived metadata.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (string, map[string]any, error)
}

// Chunker splits normalized text into overlapping, token-budgeted drafts.
type Chunker interface {
	Chunk(text string) []domain.ChunkDraft
	// CounterName identifies the token counting strategy, recorded in chunk
	// metadata so degraded word-count approximation stays visible.
	CounterName() string
}

// TokenCounter measures text under the configured counting strategy.
type TokenCounter interface {
	Count(text string) int
	Name() string
}

// Embedder builds unit-normalized vectors for chunk batches and queries.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// RetrievalStore persists chunks and executes the hybrid fused query.
type RetrievalStore interface {
	EnsureSchema(ctx context.Context) error
	UpsertChunks(ctx context.Context, chunks []domain.Chunk) ([]string, error)
	HybridSearch(ctx context.Context, tenantID, queryText string, queryVector []float32, topK, rrfK int, exactMatch bool, sourceFilter []string) ([]domain.SearchResult, error)
	// FetchCandidates backs the degraded search path: a bounded candidate
	// set for the tenant, optionally pre-filtered by a content substring.
	FetchCandidates(ctx context.Context, tenantID, substring string, limit int) ([]domain.Chunk, error)
	DeleteByDocument(ctx context.Context, tenantID string, documentID int64) (int64, error)
	DeleteBySource(ctx context.Context, tenantID, sourceFile string) (int64, error)
	Stats(ctx context.Context, tenantID string) (*domain.StoreStats, error)
}

// Reranker scores candidate passages against a query. Failures are treated
// as an enhancement loss, not a search failure.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate, topK int, threshold float64) ([]domain.RerankedCandidate, error)
}

// IngestQueue publishes and consumes asynchronous ingest jobs.
type IngestQueue interface {
	PublishIngestJob(ctx context.Context, job domain.IngestJob) error
	SubscribeIngestJobs(ctx context.Context, handler func(context.Context, domain.IngestJob) error) error
}
