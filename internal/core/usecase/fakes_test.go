package usecase

import (
	"context"

	"github.com/kirillkom/docsearch/internal/core/domain"
)

type fakeLoader struct {
	content  string
	metadata map[string]any
	err      error
}

func (f *fakeLoader) Load(_ context.Context, _ string) (string, map[string]any, error) {
	return f.content, f.metadata, f.err
}

type fakeChunker struct {
	drafts []domain.ChunkDraft
}

func (f *fakeChunker) Chunk(_ string) []domain.ChunkDraft { return f.drafts }
func (f *fakeChunker) CounterName() string                { return "words" }

type fakeCounter struct{}

func (fakeCounter) Count(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}
func (fakeCounter) Name() string { return "words" }

type fakeEmbedder struct {
	vectors [][]float32
	query   []float32
	err     error

	batchCalls int
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.query != nil {
		return f.query, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

type fakeStore struct {
	upserted    []domain.Chunk
	upsertErr   error
	hybrid      []domain.SearchResult
	hybridErr   error
	candidates    []domain.Chunk
	filteredEmpty bool
	fetchErr      error
	fetchCalls    []string
	deletedDocs int64
	deletedSrc  int64
	stats       *domain.StoreStats

	lastTopK   int
	lastRRFK   int
	lastExact  bool
	lastFilter []string
}

func (f *fakeStore) EnsureSchema(_ context.Context) error { return nil }

func (f *fakeStore) UpsertChunks(_ context.Context, chunks []domain.Chunk) ([]string, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upserted = append(f.upserted, chunks...)
	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ID
	}
	return ids, nil
}

func (f *fakeStore) HybridSearch(_ context.Context, _, _ string, _ []float32, topK, rrfK int, exactMatch bool, sourceFilter []string) ([]domain.SearchResult, error) {
	f.lastTopK, f.lastRRFK, f.lastExact, f.lastFilter = topK, rrfK, exactMatch, sourceFilter
	if f.hybridErr != nil {
		return nil, f.hybridErr
	}
	return f.hybrid, nil
}

func (f *fakeStore) FetchCandidates(_ context.Context, _, substring string, _ int) ([]domain.Chunk, error) {
	f.fetchCalls = append(f.fetchCalls, substring)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if substring != "" && f.filteredEmpty {
		return nil, nil
	}
	return f.candidates, nil
}

func (f *fakeStore) DeleteByDocument(_ context.Context, _ string, _ int64) (int64, error) {
	return f.deletedDocs, nil
}

func (f *fakeStore) DeleteBySource(_ context.Context, _, _ string) (int64, error) {
	return f.deletedSrc, nil
}

func (f *fakeStore) Stats(_ context.Context, _ string) (*domain.StoreStats, error) {
	return f.stats, nil
}

type fakeReranker struct {
	scored []domain.RerankedCandidate
	err    error

	lastQuery      string
	lastCandidates []domain.RerankCandidate
	lastTopK       int
	lastThreshold  float64
}

func (f *fakeReranker) Rerank(_ context.Context, query string, candidates []domain.RerankCandidate, topK int, threshold float64) ([]domain.RerankedCandidate, error) {
	f.lastQuery = query
	f.lastCandidates = candidates
	f.lastTopK = topK
	f.lastThreshold = threshold
	if f.err != nil {
		return nil, f.err
	}
	return f.scored, nil
}
