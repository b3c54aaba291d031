package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kirillkom/docsearch/internal/core/domain"
	"github.com/pgvector/pgvector-go"
)

const ftsConfig = "english"

type rankedRow struct {
	result domain.SearchResult
	rank   int
}

// HybridSearch runs the tenant-scoped vector and lexical queries and fuses
// the two rankings with Reciprocal Rank Fusion. A chunk present in only one
// list gets no contribution from the other side.
func (s *Store) HybridSearch(ctx context.Context, tenantID, queryText string, queryVector []float32, topK, rrfK int, exactMatch bool, sourceFilter []string) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 20
	}
	if rrfK <= 0 {
		rrfK = 60
	}
	if len(queryVector) != s.dimension {
		return nil, domain.WrapError(domain.ErrDimensionMismatch, "hybrid search",
			fmt.Errorf("query vector has dimension %d, store expects %d", len(queryVector), s.dimension))
	}

	vectorRows, err := s.vectorSearch(ctx, tenantID, queryVector, topK, sourceFilter)
	if err != nil {
		return nil, err
	}
	lexicalRows, err := s.lexicalSearch(ctx, tenantID, queryText, topK, exactMatch, sourceFilter)
	if err != nil {
		return nil, err
	}

	return fuseRRF(vectorRows, lexicalRows, topK, rrfK), nil
}

func (s *Store) vectorSearch(ctx context.Context, tenantID string, queryVector []float32, topK int, sourceFilter []string) ([]rankedRow, error) {
	var sb strings.Builder
	args := []any{pgvector.NewVector(queryVector), tenantID}
	sb.WriteString(`
SELECT id, content, source_file, chunk_index, token_count, metadata,
	1 - (embedding <=> $1) AS score
FROM chunks
WHERE tenant_id = $2`)
	appendSourceFilter(&sb, &args, sourceFilter)
	fmt.Fprintf(&sb, `
ORDER BY embedding <=> $1
LIMIT %d`, topK)

	queryCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(queryCtx, sb.String(), args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStore, "vector search", err)
	}
	defer rows.Close()
	return scanRankedRows(rows, func(result *domain.SearchResult, score float64) {
		result.VectorScore = score
	})
}

func (s *Store) lexicalSearch(ctx context.Context, tenantID, queryText string, topK int, exactMatch bool, sourceFilter []string) ([]rankedRow, error) {
	// Phrase matching for exact mode, permissive web-search parsing
	// otherwise.
	tsquery := "websearch_to_tsquery"
	if exactMatch {
		tsquery = "phraseto_tsquery"
	}

	var sb strings.Builder
	args := []any{queryText, tenantID}
	fmt.Fprintf(&sb, `
SELECT id, content, source_file, chunk_index, token_count, metadata,
	ts_rank(to_tsvector('%[1]s', content), %[2]s('%[1]s', $1)) AS score
FROM chunks
WHERE tenant_id = $2
	AND to_tsvector('%[1]s', content) @@ %[2]s('%[1]s', $1)`, ftsConfig, tsquery)
	appendSourceFilter(&sb, &args, sourceFilter)
	fmt.Fprintf(&sb, `
ORDER BY score DESC, id
LIMIT %d`, topK)

	queryCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(queryCtx, sb.String(), args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStore, "lexical search", err)
	}
	defer rows.Close()
	return scanRankedRows(rows, func(result *domain.SearchResult, score float64) {
		result.TextScore = score
	})
}

func appendSourceFilter(sb *strings.Builder, args *[]any, sourceFilter []string) {
	if len(sourceFilter) == 0 {
		return
	}
	placeholders := make([]string, len(sourceFilter))
	for i, source := range sourceFilter {
		*args = append(*args, source)
		placeholders[i] = fmt.Sprintf("$%d", len(*args))
	}
	fmt.Fprintf(sb, "\n\tAND source_file IN (%s)", strings.Join(placeholders, ", "))
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRankedRows(rows rowScanner, setScore func(*domain.SearchResult, float64)) ([]rankedRow, error) {
	var out []rankedRow
	for rows.Next() {
		var (
			result      domain.SearchResult
			metadataRaw []byte
			score       float64
		)
		if err := rows.Scan(&result.ID, &result.Content, &result.SourceFile, &result.ChunkIndex,
			&result.TokenCount, &metadataRaw, &score); err != nil {
			return nil, domain.WrapError(domain.ErrStore, "scan search row", err)
		}
		result.Metadata = unmarshalMetadata(metadataRaw)
		setScore(&result, score)
		out = append(out, rankedRow{result: result, rank: len(out) + 1})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStore, "iterate search rows", err)
	}
	return out, nil
}

// fuseRRF outer-joins the two rankings on chunk id and scores each chunk
// 1/(rrfK+vector_rank) + 1/(rrfK+text_rank), with an absent side
// contributing zero. Equal fused scores break deterministically by id.
func fuseRRF(vectorRows, lexicalRows []rankedRow, topK, rrfK int) []domain.SearchResult {
	fused := make(map[string]domain.SearchResult, len(vectorRows)+len(lexicalRows))

	for _, row := range vectorRows {
		result := row.result
		result.RRFScore = 1.0 / float64(rrfK+row.rank)
		fused[result.ID] = result
	}
	for _, row := range lexicalRows {
		contribution := 1.0 / float64(rrfK+row.rank)
		if existing, ok := fused[row.result.ID]; ok {
			existing.TextScore = row.result.TextScore
			existing.RRFScore += contribution
			fused[row.result.ID] = existing
			continue
		}
		result := row.result
		result.RRFScore = contribution
		fused[result.ID] = result
	}

	out := make([]domain.SearchResult, 0, len(fused))
	for _, result := range fused {
		out = append(out, result)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RRFScore != out[j].RRFScore {
			return out[i].RRFScore > out[j].RRFScore
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}
