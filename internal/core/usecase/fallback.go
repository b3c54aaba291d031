package usecase

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/docsearch/internal/core/domain"
)

// fallbackSearch answers a query without the store's ranked queries: it
// pulls a bounded candidate set for the tenant, pre-filtered by the longest
// query token when one exists, and scores it locally by cosine similarity.
// Best effort; it makes no precision or recall promise against the primary
// hybrid path.
func (uc *RetrievalUseCase) fallbackSearch(ctx context.Context, tenantID, query string, queryVector []float32, topK int) ([]domain.SearchResult, error) {
	substring := longestQueryToken(query)

	candidates, err := uc.store.FetchCandidates(ctx, tenantID, substring, uc.cfg.FallbackCandidates)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 && substring != "" {
		candidates, err = uc.store.FetchCandidates(ctx, tenantID, "", uc.cfg.FallbackCandidates)
		if err != nil {
			return nil, err
		}
	}

	results := make([]domain.SearchResult, 0, len(candidates))
	for _, chunk := range candidates {
		results = append(results, domain.SearchResult{
			ID:          chunk.ID,
			Content:     chunk.Content,
			SourceFile:  chunk.SourceFile,
			ChunkIndex:  chunk.ChunkIndex,
			TokenCount:  chunk.TokenCount,
			Metadata:    chunk.Metadata,
			VectorScore: cosineSimilarity(queryVector, chunk.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].VectorScore != results[j].VectorScore {
			return results[i].VectorScore > results[j].VectorScore
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func longestQueryToken(query string) string {
	longest := ""
	var b strings.Builder
	flush := func() {
		if b.Len() > len(longest) {
			longest = b.String()
		}
		b.Reset()
	}
	for _, r := range query {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	if len(longest) < 3 {
		return ""
	}
	return longest
}
