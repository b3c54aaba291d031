package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/docsearch/internal/core/domain"
)

const previewLimit = 200

// GenerateContext assembles a citation-tagged context string from ranked
// results under a token budget. Accumulation stops at the first result that
// would overflow the budget; results already added stay. Citation ids are
// 1-based in appearance order and match the returned grounding entries.
func (uc *RetrievalUseCase) GenerateContext(results []domain.SearchResult, maxTokens int) (string, []domain.GroundingEntry) {
	if maxTokens <= 0 || len(results) == 0 {
		return "", nil
	}

	var (
		b         strings.Builder
		grounding []domain.GroundingEntry
		used      int
	)
	for _, result := range results {
		tokens := result.TokenCount
		if tokens == 0 {
			tokens = uc.counter.Count(result.Content)
		}
		if used+tokens > maxTokens {
			break
		}
		used += tokens

		citationID := len(grounding) + 1
		fmt.Fprintf(&b, "[%d] %s:\n%s\n\n", citationID, result.SourceFile, result.Content)
		grounding = append(grounding, domain.GroundingEntry{
			CitationID: citationID,
			Source:     result.SourceFile,
			ChunkIndex: result.ChunkIndex,
			Score:      resultScore(result),
			Preview:    preview(result.Content),
		})
	}
	return strings.TrimRight(b.String(), "\n"), grounding
}

func resultScore(result domain.SearchResult) float64 {
	if result.RerankScore != nil {
		return *result.RerankScore
	}
	if result.RRFScore > 0 {
		return result.RRFScore
	}
	return result.VectorScore
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "..."
}
