package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/docsearch/internal/core/domain"
	"github.com/kirillkom/docsearch/internal/core/ports"
)

// SearchConfig carries the retrieval defaults; SearchOptions override them
// per call.
type SearchConfig struct {
	TopK               int
	FinalK             int
	RRFK               int
	RerankEnabled      bool
	RerankThreshold    float64
	FallbackCandidates int
}

// RetrievalUseCase answers queries against the hybrid store, degrades to a
// local-similarity scan when the store query fails, optionally reranks, and
// assembles citation-grounded context. Stateless between calls; the shared
// handles are safe for concurrent use.
type RetrievalUseCase struct {
	embedder ports.Embedder
	store    ports.RetrievalStore
	reranker ports.Reranker
	counter  ports.TokenCounter
	cfg      SearchConfig
	logger   *slog.Logger

	// onDegraded is invoked once per search answered by the fallback path.
	onDegraded func()
}

func NewRetrievalUseCase(
	embedder ports.Embedder,
	store ports.RetrievalStore,
	reranker ports.Reranker,
	counter ports.TokenCounter,
	cfg SearchConfig,
	logger *slog.Logger,
	onDegraded func(),
) *RetrievalUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 20
	}
	if cfg.FinalK <= 0 {
		cfg.FinalK = 5
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = 60
	}
	if cfg.FallbackCandidates <= 0 {
		cfg.FallbackCandidates = 200
	}
	return &RetrievalUseCase{
		embedder:   embedder,
		store:      store,
		reranker:   reranker,
		counter:    counter,
		cfg:        cfg,
		logger:     logger,
		onDegraded: onDegraded,
	}
}

func (uc *RetrievalUseCase) Search(ctx context.Context, query, tenantID string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	if tenantID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("tenant id is required"))
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = uc.cfg.TopK
	}
	finalK := opts.FinalK
	if finalK <= 0 {
		finalK = uc.cfg.FinalK
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := uc.store.HybridSearch(ctx, tenantID, query, queryVector, topK, uc.cfg.RRFK, opts.ExactMatch, opts.SourceFilter)
	if err != nil {
		if !domain.IsKind(err, domain.ErrStore) {
			return nil, fmt.Errorf("hybrid search: %w", err)
		}
		uc.logger.Warn("hybrid_search_degraded", "tenant_id", tenantID, "error", err)
		results, err = uc.fallbackSearch(ctx, tenantID, query, queryVector, topK)
		if err != nil {
			return nil, fmt.Errorf("fallback search: %w", err)
		}
		if uc.onDegraded != nil {
			uc.onDegraded()
		}
	}

	useRerank := uc.cfg.RerankEnabled
	if opts.UseRerank != nil {
		useRerank = *opts.UseRerank
	}
	if useRerank && uc.reranker != nil && len(results) > 0 {
		reranked, err := uc.rerank(ctx, query, results, finalK)
		if err != nil {
			// Reranking is an enhancement; the fused ordering still stands.
			uc.logger.Warn("rerank_skipped", "tenant_id", tenantID, "error", err)
		} else {
			return reranked, nil
		}
	}

	if len(results) > finalK {
		results = results[:finalK]
	}
	return results, nil
}

func (uc *RetrievalUseCase) rerank(ctx context.Context, query string, results []domain.SearchResult, finalK int) ([]domain.SearchResult, error) {
	candidates := make([]domain.RerankCandidate, len(results))
	byID := make(map[string]domain.SearchResult, len(results))
	for i, result := range results {
		candidates[i] = domain.RerankCandidate{ID: result.ID, Text: result.Content}
		byID[result.ID] = result
	}

	scored, err := uc.reranker.Rerank(ctx, query, candidates, finalK, uc.cfg.RerankThreshold)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SearchResult, 0, len(scored))
	for _, candidate := range scored {
		result, ok := byID[candidate.ID]
		if !ok {
			continue
		}
		score := candidate.Score
		result.RerankScore = &score
		out = append(out, result)
	}
	return out, nil
}

func (uc *RetrievalUseCase) DeleteDocument(ctx context.Context, tenantID string, documentID int64) (int64, error) {
	return uc.store.DeleteByDocument(ctx, tenantID, documentID)
}

func (uc *RetrievalUseCase) DeleteSource(ctx context.Context, tenantID, sourceFile string) (int64, error) {
	return uc.store.DeleteBySource(ctx, tenantID, sourceFile)
}

func (uc *RetrievalUseCase) Stats(ctx context.Context, tenantID string) (*domain.StoreStats, error) {
	return uc.store.Stats(ctx, tenantID)
}
