package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/docsearch/internal/config"
	"github.com/kirillkom/docsearch/internal/core/ports"
	"github.com/kirillkom/docsearch/internal/core/usecase"
	"github.com/kirillkom/docsearch/internal/infrastructure/chunking"
	"github.com/kirillkom/docsearch/internal/infrastructure/embedding/ollama"
	"github.com/kirillkom/docsearch/internal/infrastructure/loader"
	natsqueue "github.com/kirillkom/docsearch/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docsearch/internal/infrastructure/rerank"
	"github.com/kirillkom/docsearch/internal/infrastructure/resilience"
	"github.com/kirillkom/docsearch/internal/infrastructure/store/postgres"
	"github.com/kirillkom/docsearch/internal/observability/metrics"
)

// App wires the retrieval engine once at process start; the orchestrators
// are stateless and safe for concurrent callers.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.RetrievalMetrics

	Queue    ports.IngestQueue
	IngestUC *usecase.IngestUseCase
	SearchUC *usecase.RetrievalUseCase

	closeFn func()
}

type Options struct {
	Service string
	// WithQueue controls whether the NATS connection is established; the
	// API can run without async ingestion.
	WithQueue bool
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewStore(db, cfg.EmbedDimension, cfg.StatementTimeout())
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy())
	embedder := ollama.New(cfg.OllamaURL, cfg.EmbedModel, cfg.EmbedDimension, executor)

	var reranker ports.Reranker
	if cfg.RerankURL != "" {
		reranker = rerank.New(cfg.RerankURL, cfg.RerankModel, executor)
	}

	var queue *natsqueue.Queue
	if opts.WithQueue {
		queue, err = natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{Executor: executor})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init ingest queue: %w", err)
		}
	}

	m := metrics.NewRetrievalMetrics(opts.Service)
	counter := chunking.WordCounter{}
	splitter := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, counter)

	ingestUC := usecase.NewIngestUseCase(loader.New(), splitter, embedder, store, logger)
	searchUC := usecase.NewRetrievalUseCase(embedder, store, reranker, counter, usecase.SearchConfig{
		TopK:               cfg.TopK,
		FinalK:             cfg.FinalK,
		RRFK:               cfg.RRFK,
		RerankEnabled:      cfg.RerankEnabled,
		RerankThreshold:    cfg.RerankThreshold,
		FallbackCandidates: cfg.FallbackCandidates,
	}, logger, m.MarkDegraded)

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		IngestUC: ingestUC,
		SearchUC: searchUC,
		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			_ = db.Close()
		},
	}
	if queue != nil {
		app.Queue = queue
	}
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
