package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Chunk is the atomic retrievable unit persisted by the store.
type Chunk struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	DocumentID *int64         `json:"document_id,omitempty"`
	SourceFile string         `json:"source_file"`
	ChunkIndex int            `json:"chunk_index"`
	Content    string         `json:"content"`
	Embedding  []float32      `json:"-"`
	TokenCount int            `json:"token_count"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ChunkDraft is a chunk before identity and embedding are assigned.
type ChunkDraft struct {
	Content    string
	TokenCount int
	ChunkIndex int
}

// SearchResult is a query-time projection of a chunk plus derived scores.
// Never persisted.
type SearchResult struct {
	ID          string         `json:"id"`
	Content     string         `json:"content"`
	SourceFile  string         `json:"source_file"`
	ChunkIndex  int            `json:"chunk_index"`
	TokenCount  int            `json:"token_count"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	VectorScore float64        `json:"vector_score"`
	TextScore   float64        `json:"text_score"`
	RRFScore    float64        `json:"rrf_score"`
	RerankScore *float64       `json:"rerank_score,omitempty"`
}

// GroundingEntry is a citation record attached to assembled context.
// CitationID is 1-based and matches the order the chunk was injected into
// the context string.
type GroundingEntry struct {
	CitationID int     `json:"citation_id"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Preview    string  `json:"preview"`
}

type IngestStatus string

const (
	IngestSuccess   IngestStatus = "success"
	IngestError     IngestStatus = "error"
	IngestNoContent IngestStatus = "no_content"
)

// IngestResult summarizes one document ingestion.
type IngestResult struct {
	Status        IngestStatus `json:"status"`
	SourceFile    string       `json:"source_file"`
	ChunksCreated int          `json:"chunks_created"`
	ChunkIDs      []string     `json:"chunk_ids,omitempty"`
	TotalTokens   int          `json:"total_tokens"`
}

// SearchOptions carries per-call overrides; zero values fall back to the
// configured defaults.
type SearchOptions struct {
	UseRerank    *bool    `json:"use_rerank,omitempty"`
	TopK         int      `json:"top_k,omitempty"`
	FinalK       int      `json:"final_k,omitempty"`
	ExactMatch   bool     `json:"exact_match,omitempty"`
	SourceFilter []string `json:"source_filter,omitempty"`
}

// StoreStats reports corpus counters, optionally scoped to one tenant.
type StoreStats struct {
	ChunkCount    int64 `json:"chunk_count"`
	DocumentCount int64 `json:"document_count"`
	TotalTokens   int64 `json:"total_tokens"`
	TenantCount   int64 `json:"tenant_count"`
}

// RerankCandidate pairs a chunk id with the text sent to the relevance
// scorer.
type RerankCandidate struct {
	ID   string
	Text string
}

// RerankedCandidate is a scored candidate returned by the reranker.
type RerankedCandidate struct {
	ID    string
	Score float64
}

const chunkIDContentPrefix = 32

// ChunkID derives the stable chunk identifier from tenant, source file,
// position, and a content prefix. Re-ingesting identical content yields the
// same id, which is what makes upserts idempotent.
func ChunkID(tenantID, sourceFile string, chunkIndex int, content string) string {
	prefix := content
	if len(prefix) > chunkIDContentPrefix {
		prefix = prefix[:chunkIDContentPrefix]
	}
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%s", tenantID, sourceFile, chunkIndex, prefix))
	return hex.EncodeToString(sum[:16])
}
