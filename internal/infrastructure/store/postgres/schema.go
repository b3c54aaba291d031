package postgres

import (
	"context"
	"fmt"

	"github.com/kirillkom/docsearch/internal/core/domain"
)

const schemaLockKey = int64(2026083101)

// EnsureSchema is idempotent and safe to run on every startup. The vector
// column dimension is fixed store-wide; changing it requires a migration,
// not a restart.
func (s *Store) EnsureSchema(ctx context.Context) error {
	execCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(execCtx, nil)
	if err != nil {
		return domain.WrapError(domain.ErrStore, "begin schema tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(execCtx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return domain.WrapError(domain.ErrStore, "acquire schema lock", err)
	}

	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	document_id BIGINT,
	source_file TEXT NOT NULL,
	chunk_index INT NOT NULL,
	content TEXT NOT NULL,
	embedding vector(%d) NOT NULL,
	token_count INT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_chunks_tenant ON chunks(tenant_id);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(tenant_id, document_id);
CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
CREATE INDEX IF NOT EXISTS idx_chunks_content_fts ON chunks USING gin (to_tsvector('english', content));
`, s.dimension)

	if _, err := tx.ExecContext(execCtx, ddl); err != nil {
		return domain.WrapError(domain.ErrStore, "execute schema ddl", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.ErrStore, "commit schema tx", err)
	}
	return nil
}
