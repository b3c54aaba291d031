package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/kirillkom/docsearch/internal/core/domain"
	"github.com/kirillkom/docsearch/internal/core/ports"
)

// IngestUseCase runs the one-way ingestion pipeline: load, chunk, embed,
// upsert. Chunk ids are content-derived, so re-running the same document for
// the same tenant overwrites rather than duplicates.
type IngestUseCase struct {
	loader   ports.DocumentLoader
	chunker  ports.Chunker
	embedder ports.Embedder
	store    ports.RetrievalStore
	logger   *slog.Logger
}

func NewIngestUseCase(
	loader ports.DocumentLoader,
	chunker ports.Chunker,
	embedder ports.Embedder,
	store ports.RetrievalStore,
	logger *slog.Logger,
) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

func (uc *IngestUseCase) Ingest(ctx context.Context, path, tenantID string, documentID *int64, extra map[string]any) (*domain.IngestResult, error) {
	if tenantID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest", fmt.Errorf("tenant id is required"))
	}

	content, loaderMeta, err := uc.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	sourceFile, _ := loaderMeta["source_file"].(string)
	if sourceFile == "" {
		sourceFile = path
	}

	// Caller-supplied metadata wins on key collision.
	metadata := make(map[string]any, len(loaderMeta)+len(extra)+1)
	maps.Copy(metadata, loaderMeta)
	metadata["token_counter"] = uc.chunker.CounterName()
	maps.Copy(metadata, extra)

	drafts := uc.chunker.Chunk(content)
	if len(drafts) == 0 {
		uc.logger.Info("ingest_no_content", "source_file", sourceFile, "tenant_id", tenantID)
		return &domain.IngestResult{
			Status:     domain.IngestNoContent,
			SourceFile: sourceFile,
		}, nil
	}

	texts := make([]string, len(drafts))
	for i, draft := range drafts {
		texts[i] = draft.Content
	}
	vectors, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(drafts) {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(drafts)))
	}

	totalTokens := 0
	chunks := make([]domain.Chunk, len(drafts))
	for i, draft := range drafts {
		totalTokens += draft.TokenCount
		chunks[i] = domain.Chunk{
			ID:         domain.ChunkID(tenantID, sourceFile, draft.ChunkIndex, draft.Content),
			TenantID:   tenantID,
			DocumentID: documentID,
			SourceFile: sourceFile,
			ChunkIndex: draft.ChunkIndex,
			Content:    draft.Content,
			Embedding:  vectors[i],
			TokenCount: draft.TokenCount,
			Metadata:   metadata,
		}
	}

	ids, err := uc.store.UpsertChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("upsert chunks: %w", err)
	}

	uc.logger.Info("ingest_complete",
		"source_file", sourceFile,
		"tenant_id", tenantID,
		"chunks", len(ids),
		"total_tokens", totalTokens,
	)
	return &domain.IngestResult{
		Status:        domain.IngestSuccess,
		SourceFile:    sourceFile,
		ChunksCreated: len(ids),
		ChunkIDs:      ids,
		TotalTokens:   totalTokens,
	}, nil
}
