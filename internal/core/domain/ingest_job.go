package domain

// IngestJob is the payload of an asynchronous ingestion request carried on
// the queue.
type IngestJob struct {
	JobID      string         `json:"job_id"`
	Path       string         `json:"path"`
	TenantID   string         `json:"tenant_id"`
	DocumentID *int64         `json:"document_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
