package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/docsearch/internal/core/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "8080" {
		t.Fatalf("unexpected api port: %q", cfg.APIPort)
	}
	if cfg.EmbedDimension != 768 {
		t.Fatalf("unexpected dimension: %d", cfg.EmbedDimension)
	}
	if cfg.ChunkSize != 1500 || cfg.ChunkOverlap != 200 {
		t.Fatalf("unexpected chunking defaults: %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TopK != 20 || cfg.FinalK != 5 || cfg.RRFK != 60 {
		t.Fatalf("unexpected retrieval defaults: %d/%d/%d", cfg.TopK, cfg.FinalK, cfg.RRFK)
	}
	if cfg.RerankEnabled {
		t.Fatalf("rerank must default off")
	}
	if cfg.NATSSubject != "docsearch.ingest" {
		t.Fatalf("unexpected nats subject: %q", cfg.NATSSubject)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EMBED_DIMENSION", "1024")
	t.Setenv("TOP_K", "50")
	t.Setenv("RERANK_ENABLED", "true")
	t.Setenv("RERANK_URL", "http://localhost:8081")
	t.Setenv("POSTGRES_HOST", "db.internal")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EmbedDimension != 1024 {
		t.Fatalf("env override lost: %d", cfg.EmbedDimension)
	}
	if cfg.TopK != 50 {
		t.Fatalf("env override lost: %d", cfg.TopK)
	}
	if !cfg.RerankEnabled || cfg.RerankURL != "http://localhost:8081" {
		t.Fatalf("rerank overrides lost: %+v", cfg)
	}
	if cfg.PostgresHost != "db.internal" {
		t.Fatalf("postgres override lost: %q", cfg.PostgresHost)
	}
}

func TestLoadYAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docsearch.yaml")
	body := "chunk_size: 800\nchunk_overlap: 80\ntop_k: 30\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DOCSEARCH_CONFIG", path)
	t.Setenv("TOP_K", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChunkSize != 800 || cfg.ChunkOverlap != 80 {
		t.Fatalf("yaml values lost: %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TopK != 15 {
		t.Fatalf("environment must override the file, got %d", cfg.TopK)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("DOCSEARCH_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	if !domain.IsKind(err, domain.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dimension", func(c *Config) { c.EmbedDimension = 0 }},
		{"overlap >= size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }},
		{"zero top_k", func(c *Config) { c.TopK = 0 }},
		{"zero rrf_k", func(c *Config) { c.RRFK = 0 }},
		{"threshold out of range", func(c *Config) { c.RerankThreshold = 1.5 }},
		{"rerank without url", func(c *Config) { c.RerankEnabled = true; c.RerankURL = "" }},
		{"zero statement timeout", func(c *Config) { c.StatementTimeoutMS = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !domain.IsKind(err, domain.ErrConfig) {
				t.Fatalf("expected config error, got %v", err)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := defaults()
	cfg.PostgresUser = "svc"
	cfg.PostgresPassword = "secret"
	cfg.PostgresHost = "db"
	cfg.PostgresPort = 5433
	cfg.PostgresDB = "corpus"

	want := "postgres://svc:secret@db:5433/corpus?sslmode=disable&connect_timeout=5"
	if got := cfg.PostgresDSN(); got != want {
		t.Fatalf("unexpected dsn: %q", got)
	}
}
