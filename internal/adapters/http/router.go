package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docsearch/internal/core/domain"
	"github.com/kirillkom/docsearch/internal/core/ports"
	"github.com/kirillkom/docsearch/internal/core/usecase"
	"github.com/kirillkom/docsearch/internal/observability/metrics"
)

const serviceName = "api"

// Router exposes synchronous ingest and search over JSON, plus async ingest
// enqueueing, corpus stats, and deletes.
type Router struct {
	ingestUC  *usecase.IngestUseCase
	searchUC  *usecase.RetrievalUseCase
	queue     ports.IngestQueue
	metrics   *metrics.RetrievalMetrics
	rateRPS   int
	rateBurst int
}

func NewRouter(
	ingestUC *usecase.IngestUseCase,
	searchUC *usecase.RetrievalUseCase,
	queue ports.IngestQueue,
	m *metrics.RetrievalMetrics,
	rateRPS, rateBurst int,
) *Router {
	return &Router{
		ingestUC:  ingestUC,
		searchUC:  searchUC,
		queue:     queue,
		metrics:   m,
		rateRPS:   rateRPS,
		rateBurst: rateBurst,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("POST /v1/ingest", rt.ingest)
	mux.HandleFunc("POST /v1/ingest/async", rt.ingestAsync)
	mux.HandleFunc("POST /v1/search", rt.search)
	mux.HandleFunc("GET /v1/stats", rt.stats)
	mux.HandleFunc("DELETE /v1/documents", rt.deleteDocuments)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	handler := accessLogMiddleware(mux)
	handler = rateLimitMiddleware(rt.rateRPS, rt.rateBurst, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ingestRequest struct {
	Path       string         `json:"path"`
	TenantID   string         `json:"tenant_id"`
	DocumentID *int64         `json:"document_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (rt *Router) ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !decodeIngestRequest(w, r, &req) {
		return
	}

	start := time.Now()
	result, err := rt.ingestUC.Ingest(r.Context(), req.Path, req.TenantID, req.DocumentID, req.Metadata)
	if rt.metrics != nil {
		chunks := 0
		if result != nil {
			chunks = result.ChunksCreated
		}
		rt.metrics.ObserveIngest(serviceName, time.Since(start), chunks, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) ingestAsync(w http.ResponseWriter, r *http.Request) {
	if rt.queue == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "async ingestion is not configured"})
		return
	}

	var req ingestRequest
	if !decodeIngestRequest(w, r, &req) {
		return
	}

	job := domain.IngestJob{
		JobID:      uuid.NewString(),
		Path:       req.Path,
		TenantID:   req.TenantID,
		DocumentID: req.DocumentID,
		Metadata:   req.Metadata,
	}
	if err := rt.queue.PublishIngestJob(r.Context(), job); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.JobID})
}

func decodeIngestRequest(w http.ResponseWriter, r *http.Request, req *ingestRequest) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	if strings.TrimSpace(req.Path) == "" || strings.TrimSpace(req.TenantID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path and tenant_id are required"})
		return false
	}
	return true
}

type searchRequest struct {
	Query     string               `json:"query"`
	TenantID  string               `json:"tenant_id"`
	Options   domain.SearchOptions `json:"options"`
	MaxTokens int                  `json:"max_tokens,omitempty"`
}

type searchResponse struct {
	Results   []domain.SearchResult   `json:"results"`
	Context   string                  `json:"context,omitempty"`
	Grounding []domain.GroundingEntry `json:"grounding,omitempty"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" || strings.TrimSpace(req.TenantID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query and tenant_id are required"})
		return
	}

	start := time.Now()
	results, err := rt.searchUC.Search(r.Context(), req.Query, req.TenantID, req.Options)
	if rt.metrics != nil {
		rt.metrics.ObserveSearch(serviceName, time.Since(start), err)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	resp := searchResponse{Results: results}
	if req.MaxTokens > 0 {
		resp.Context, resp.Grounding = rt.searchUC.GenerateContext(results, req.MaxTokens)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.searchUC.Stats(r.Context(), r.URL.Query().Get("tenant_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type deleteRequest struct {
	TenantID   string `json:"tenant_id"`
	DocumentID *int64 `json:"document_id,omitempty"`
	SourceFile string `json:"source_file,omitempty"`
}

func (rt *Router) deleteDocuments(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.TenantID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant_id is required"})
		return
	}

	var (
		count int64
		err   error
	)
	switch {
	case req.DocumentID != nil:
		count, err = rt.searchUC.DeleteDocument(r.Context(), req.TenantID, *req.DocumentID)
	case req.SourceFile != "":
		count, err = rt.searchUC.DeleteSource(r.Context(), req.TenantID, req.SourceFile)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document_id or source_file is required"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": count})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case domain.IsKind(err, domain.ErrLoad):
		status = http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
