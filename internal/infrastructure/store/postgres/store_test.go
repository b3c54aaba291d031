package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/docsearch/internal/core/domain"
)

func newMockStore(t *testing.T, dimension int) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db, dimension, time.Second), mock
}

func TestUpsertChunksBatchStatement(t *testing.T) {
	store, mock := newMockStore(t, 3)

	chunks := []domain.Chunk{
		{
			ID:         "chunk-a",
			TenantID:   "acme",
			SourceFile: "report.pdf",
			ChunkIndex: 0,
			Content:    "first",
			Embedding:  []float32{1, 0, 0},
			TokenCount: 1,
			Metadata:   map[string]any{"file_type": "pdf"},
		},
		{
			ID:         "chunk-b",
			TenantID:   "acme",
			SourceFile: "report.pdf",
			ChunkIndex: 1,
			Content:    "second",
			Embedding:  []float32{0, 1, 0},
			TokenCount: 1,
		},
	}

	mock.ExpectExec("INSERT INTO chunks").
		WithArgs(
			"chunk-a", "acme", nil, "report.pdf", 0, "first", sqlmock.AnyArg(), 1, sqlmock.AnyArg(),
			"chunk-b", "acme", nil, "report.pdf", 1, "second", sqlmock.AnyArg(), 1, sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	ids, err := store.UpsertChunks(context.Background(), chunks)
	if err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}
	if len(ids) != 2 || ids[0] != "chunk-a" || ids[1] != "chunk-b" {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertChunksEmptyBatch(t *testing.T) {
	store, mock := newMockStore(t, 3)

	ids, err := store.UpsertChunks(context.Background(), nil)
	if err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no ids, got %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("empty batch must not touch the database: %v", err)
	}
}

func TestUpsertChunksDimensionMismatch(t *testing.T) {
	store, mock := newMockStore(t, 3)

	_, err := store.UpsertChunks(context.Background(), []domain.Chunk{
		{ID: "chunk-a", TenantID: "acme", Embedding: []float32{1, 0}},
	})
	if !domain.IsKind(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mismatched batch must not touch the database: %v", err)
	}
}

func TestFetchCandidatesSubstringFilter(t *testing.T) {
	store, mock := newMockStore(t, 3)

	columns := []string{"id", "content", "source_file", "chunk_index", "token_count", "metadata", "embedding"}
	mock.ExpectQuery("content ILIKE").
		WithArgs("acme", "postgres").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("chunk-a", "postgres tuning", "notes.txt", 0, 2, []byte(`{"file_type":"text"}`), "[1,0,0]"))

	got, err := store.FetchCandidates(context.Background(), "acme", "postgres", 50)
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].TenantID != "acme" {
		t.Fatalf("expected tenant populated on scan, got %q", got[0].TenantID)
	}
	if len(got[0].Embedding) != 3 || got[0].Embedding[0] != 1 {
		t.Fatalf("unexpected embedding: %v", got[0].Embedding)
	}
	if got[0].Metadata["file_type"] != "text" {
		t.Fatalf("unexpected metadata: %v", got[0].Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFetchCandidatesNoSubstring(t *testing.T) {
	store, mock := newMockStore(t, 3)

	columns := []string{"id", "content", "source_file", "chunk_index", "token_count", "metadata", "embedding"}
	mock.ExpectQuery("FROM chunks").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(columns))

	got, err := store.FetchCandidates(context.Background(), "acme", "", 0)
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteByDocument(t *testing.T) {
	store, mock := newMockStore(t, 3)

	mock.ExpectExec("DELETE FROM chunks").
		WithArgs("acme", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 7))

	count, err := store.DeleteByDocument(context.Background(), "acme", 42)
	if err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}
	if count != 7 {
		t.Fatalf("expected 7 deleted, got %d", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteBySource(t *testing.T) {
	store, mock := newMockStore(t, 3)

	mock.ExpectExec("DELETE FROM chunks").
		WithArgs("acme", "report.pdf").
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := store.DeleteBySource(context.Background(), "acme", "report.pdf")
	if err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 deleted, got %d", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStatsScopedToTenant(t *testing.T) {
	store, mock := newMockStore(t, 3)

	columns := []string{"count", "sources", "tokens", "tenants"}
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(120), int64(9), int64(48000), int64(1)))

	stats, err := store.Stats(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ChunkCount != 120 || stats.DocumentCount != 9 || stats.TotalTokens != 48000 || stats.TenantCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStatsAcrossTenants(t *testing.T) {
	store, mock := newMockStore(t, 3)

	columns := []string{"count", "sources", "tokens", "tenants"}
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(300), int64(20), int64(90000), int64(4)))

	stats, err := store.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TenantCount != 4 {
		t.Fatalf("unexpected tenant count: %d", stats.TenantCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
