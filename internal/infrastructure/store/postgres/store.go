package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/kirillkom/docsearch/internal/core/domain"
)

// Store persists chunks in Postgres and runs the fused vector+lexical
// retrieval query. Vector similarity comes from pgvector, lexical relevance
// from the built-in full-text machinery.
type Store struct {
	db          *sql.DB
	dimension   int
	stmtTimeout time.Duration
}

func NewStore(db *sql.DB, dimension int, stmtTimeout time.Duration) *Store {
	if stmtTimeout <= 0 {
		stmtTimeout = 15 * time.Second
	}
	return &Store{db: db, dimension: dimension, stmtTimeout: stmtTimeout}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.stmtTimeout)
}

// UpsertChunks writes a batch in one multi-row statement so a partially
// written batch cannot occur. Conflicts on id overwrite content, embedding,
// token count, and metadata.
func (s *Store) UpsertChunks(ctx context.Context, chunks []domain.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return []string{}, nil
	}

	var (
		sb   strings.Builder
		args = make([]any, 0, len(chunks)*9)
		ids  = make([]string, 0, len(chunks))
	)
	sb.WriteString(`
INSERT INTO chunks (id, tenant_id, document_id, source_file, chunk_index, content, embedding, token_count, metadata)
VALUES `)

	for i, chunk := range chunks {
		if len(chunk.Embedding) != s.dimension {
			return nil, domain.WrapError(domain.ErrDimensionMismatch, "upsert chunks",
				fmt.Errorf("chunk %s has dimension %d, store expects %d", chunk.ID, len(chunk.Embedding), s.dimension))
		}
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return nil, domain.WrapError(domain.ErrStore, "marshal chunk metadata", err)
		}

		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 9
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9)

		var documentID any
		if chunk.DocumentID != nil {
			documentID = *chunk.DocumentID
		}
		args = append(args,
			chunk.ID, chunk.TenantID, documentID, chunk.SourceFile, chunk.ChunkIndex,
			chunk.Content, pgvector.NewVector(chunk.Embedding), chunk.TokenCount, metadataJSON,
		)
		ids = append(ids, chunk.ID)
	}

	sb.WriteString(`
ON CONFLICT (id) DO UPDATE SET
	document_id = EXCLUDED.document_id,
	content = EXCLUDED.content,
	embedding = EXCLUDED.embedding,
	token_count = EXCLUDED.token_count,
	metadata = EXCLUDED.metadata`)

	execCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.db.ExecContext(execCtx, sb.String(), args...); err != nil {
		return nil, domain.WrapError(domain.ErrStore, "upsert chunks", err)
	}
	return ids, nil
}

// FetchCandidates backs the degraded search path: a bounded, recent slice of
// the tenant's chunks, optionally pre-filtered by a content substring. Best
// effort only; no recall guarantee.
func (s *Store) FetchCandidates(ctx context.Context, tenantID, substring string, limit int) ([]domain.Chunk, error) {
	if limit <= 0 {
		limit = 200
	}

	query := `
SELECT id, content, source_file, chunk_index, token_count, metadata, embedding
FROM chunks
WHERE tenant_id = $1`
	args := []any{tenantID}
	if substring != "" {
		query += ` AND content ILIKE '%' || $2 || '%'`
		args = append(args, substring)
	}
	query += fmt.Sprintf(`
ORDER BY created_at DESC, id
LIMIT %d`, limit)

	queryCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStore, "fetch candidates", err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var (
			chunk       domain.Chunk
			metadataRaw []byte
			embedding   pgvector.Vector
		)
		if err := rows.Scan(&chunk.ID, &chunk.Content, &chunk.SourceFile, &chunk.ChunkIndex,
			&chunk.TokenCount, &metadataRaw, &embedding); err != nil {
			return nil, domain.WrapError(domain.ErrStore, "scan candidate", err)
		}
		chunk.TenantID = tenantID
		chunk.Embedding = embedding.Slice()
		chunk.Metadata = unmarshalMetadata(metadataRaw)
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStore, "iterate candidates", err)
	}
	return out, nil
}

func (s *Store) DeleteByDocument(ctx context.Context, tenantID string, documentID int64) (int64, error) {
	execCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	result, err := s.db.ExecContext(execCtx,
		`DELETE FROM chunks WHERE tenant_id = $1 AND document_id = $2`, tenantID, documentID)
	if err != nil {
		return 0, domain.WrapError(domain.ErrStore, "delete by document", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, domain.WrapError(domain.ErrStore, "delete by document rows", err)
	}
	return count, nil
}

func (s *Store) DeleteBySource(ctx context.Context, tenantID, sourceFile string) (int64, error) {
	execCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	result, err := s.db.ExecContext(execCtx,
		`DELETE FROM chunks WHERE tenant_id = $1 AND source_file = $2`, tenantID, sourceFile)
	if err != nil {
		return 0, domain.WrapError(domain.ErrStore, "delete by source", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, domain.WrapError(domain.ErrStore, "delete by source rows", err)
	}
	return count, nil
}

// Stats reports corpus counters; an empty tenantID reports across tenants.
func (s *Store) Stats(ctx context.Context, tenantID string) (*domain.StoreStats, error) {
	query := `
SELECT COUNT(*),
	COUNT(DISTINCT source_file),
	COALESCE(SUM(token_count), 0),
	COUNT(DISTINCT tenant_id)
FROM chunks`
	var args []any
	if tenantID != "" {
		query += ` WHERE tenant_id = $1`
		args = append(args, tenantID)
	}

	queryCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	var stats domain.StoreStats
	err := s.db.QueryRowContext(queryCtx, query, args...).Scan(
		&stats.ChunkCount, &stats.DocumentCount, &stats.TotalTokens, &stats.TenantCount)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStore, "corpus stats", err)
	}
	return &stats, nil
}

func unmarshalMetadata(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
