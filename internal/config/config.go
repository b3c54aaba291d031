package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/docsearch/internal/core/domain"
)

type Config struct {
	APIPort  string `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`

	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     int    `yaml:"postgres_port"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
	StatementTimeoutMS    int `yaml:"statement_timeout_ms"`

	OllamaURL      string `yaml:"ollama_url"`
	EmbedModel     string `yaml:"embed_model"`
	EmbedDimension int    `yaml:"embed_dimension"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	TopK   int `yaml:"top_k"`
	FinalK int `yaml:"final_k"`
	RRFK   int `yaml:"rrf_k"`

	RerankURL       string  `yaml:"rerank_url"`
	RerankModel     string  `yaml:"rerank_model"`
	RerankEnabled   bool    `yaml:"rerank_enabled"`
	RerankThreshold float64 `yaml:"rerank_threshold"`

	FallbackCandidates int `yaml:"fallback_candidates"`
	ContextMaxTokens   int `yaml:"context_max_tokens"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	APIRateLimitRPS   int    `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst int    `yaml:"api_rate_limit_burst"`
	MetricsPort       string `yaml:"metrics_port"`
}

// Load builds the configuration from an optional YAML file (DOCSEARCH_CONFIG)
// overridden by environment variables. Every option has a usable default.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("DOCSEARCH_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, domain.WrapError(domain.ErrConfig, "read config file", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, domain.WrapError(domain.ErrConfig, "parse config file", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresDB:       "docsearch",
		PostgresUser:     "postgres",
		PostgresPassword: "postgres",
		PostgresSSLMode:  "disable",

		ConnectTimeoutSeconds: 5,
		StatementTimeoutMS:    15000,

		OllamaURL:      "http://localhost:11434",
		EmbedModel:     "nomic-embed-text",
		EmbedDimension: 768,

		ChunkSize:    1500,
		ChunkOverlap: 200,

		TopK:   20,
		FinalK: 5,
		RRFK:   60,

		RerankURL:       "",
		RerankModel:     "bge-reranker-v2-m3",
		RerankEnabled:   false,
		RerankThreshold: 0.1,

		FallbackCandidates: 200,
		ContextMaxTokens:   3000,

		NATSURL:     "nats://localhost:4222",
		NATSSubject: "docsearch.ingest",

		APIRateLimitRPS:   20,
		APIRateLimitBurst: 40,
		MetricsPort:       "9090",
	}
}

func applyEnv(cfg *Config) {
	cfg.APIPort = envStr("API_PORT", cfg.APIPort)
	cfg.LogLevel = envStr("LOG_LEVEL", cfg.LogLevel)

	cfg.PostgresHost = envStr("POSTGRES_HOST", cfg.PostgresHost)
	cfg.PostgresPort = envInt("POSTGRES_PORT", cfg.PostgresPort)
	cfg.PostgresDB = envStr("POSTGRES_DB", cfg.PostgresDB)
	cfg.PostgresUser = envStr("POSTGRES_USER", cfg.PostgresUser)
	cfg.PostgresPassword = envStr("POSTGRES_PASSWORD", cfg.PostgresPassword)
	cfg.PostgresSSLMode = envStr("POSTGRES_SSLMODE", cfg.PostgresSSLMode)

	cfg.ConnectTimeoutSeconds = envInt("CONNECT_TIMEOUT_SECONDS", cfg.ConnectTimeoutSeconds)
	cfg.StatementTimeoutMS = envInt("STATEMENT_TIMEOUT_MS", cfg.StatementTimeoutMS)

	cfg.OllamaURL = envStr("OLLAMA_URL", cfg.OllamaURL)
	cfg.EmbedModel = envStr("EMBED_MODEL", cfg.EmbedModel)
	cfg.EmbedDimension = envInt("EMBED_DIMENSION", cfg.EmbedDimension)

	cfg.ChunkSize = envInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = envInt("CHUNK_OVERLAP", cfg.ChunkOverlap)

	cfg.TopK = envInt("TOP_K", cfg.TopK)
	cfg.FinalK = envInt("FINAL_K", cfg.FinalK)
	cfg.RRFK = envInt("RRF_K", cfg.RRFK)

	cfg.RerankURL = envStr("RERANK_URL", cfg.RerankURL)
	cfg.RerankModel = envStr("RERANK_MODEL", cfg.RerankModel)
	cfg.RerankEnabled = envBool("RERANK_ENABLED", cfg.RerankEnabled)
	cfg.RerankThreshold = envFloat("RERANK_THRESHOLD", cfg.RerankThreshold)

	cfg.FallbackCandidates = envInt("FALLBACK_CANDIDATES", cfg.FallbackCandidates)
	cfg.ContextMaxTokens = envInt("CONTEXT_MAX_TOKENS", cfg.ContextMaxTokens)

	cfg.NATSURL = envStr("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = envStr("NATS_SUBJECT", cfg.NATSSubject)

	cfg.APIRateLimitRPS = envInt("API_RATE_LIMIT_RPS", cfg.APIRateLimitRPS)
	cfg.APIRateLimitBurst = envInt("API_RATE_LIMIT_BURST", cfg.APIRateLimitBurst)
	cfg.MetricsPort = envStr("METRICS_PORT", cfg.MetricsPort)
}

// Validate fails fast before any request is served.
func (c Config) Validate() error {
	var problems []string
	if c.EmbedDimension <= 0 {
		problems = append(problems, "embed dimension must be positive")
	}
	if c.ChunkSize <= 0 {
		problems = append(problems, "chunk size must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		problems = append(problems, "chunk overlap must be in [0, chunk size)")
	}
	if c.TopK <= 0 || c.FinalK <= 0 {
		problems = append(problems, "top_k and final_k must be positive")
	}
	if c.RRFK <= 0 {
		problems = append(problems, "rrf_k must be positive")
	}
	if c.RerankThreshold < 0 || c.RerankThreshold > 1 {
		problems = append(problems, "rerank threshold must be in [0, 1]")
	}
	if c.RerankEnabled && c.RerankURL == "" {
		problems = append(problems, "rerank enabled but rerank url is empty")
	}
	if c.StatementTimeoutMS <= 0 || c.ConnectTimeoutSeconds <= 0 {
		problems = append(problems, "timeouts must be positive")
	}
	if len(problems) > 0 {
		return domain.WrapError(domain.ErrConfig, "validate", errors.New(strings.Join(problems, "; ")))
	}
	return nil
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort,
		c.PostgresDB, c.PostgresSSLMode, c.ConnectTimeoutSeconds,
	)
}

func (c Config) StatementTimeout() time.Duration {
	return time.Duration(c.StatementTimeoutMS) * time.Millisecond
}

func envStr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
