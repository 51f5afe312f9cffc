package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/avoronov/bookqa/internal/config"
	"github.com/avoronov/bookqa/internal/core/ports"
	"github.com/avoronov/bookqa/internal/core/usecase"
	"github.com/avoronov/bookqa/internal/infrastructure/chunking"
	"github.com/avoronov/bookqa/internal/infrastructure/extractor/pdftext"
	"github.com/avoronov/bookqa/internal/infrastructure/fetcher/httpfetch"
	"github.com/avoronov/bookqa/internal/infrastructure/llm/openai"
	natsqueue "github.com/avoronov/bookqa/internal/infrastructure/queue/nats"
	"github.com/avoronov/bookqa/internal/infrastructure/repository/postgres"
	"github.com/avoronov/bookqa/internal/infrastructure/resilience"
	"github.com/avoronov/bookqa/internal/infrastructure/tokenizer"
	"github.com/avoronov/bookqa/internal/observability/logging"
	"github.com/avoronov/bookqa/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue      *natsqueue.AuditQueue
	AuditStore ports.AuditStore
	AskUC      ports.QuestionAnswerer

	ServerMetrics *metrics.HTTPServerMetrics
	WorkerMetrics *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	chunks := postgres.NewChunkRepository(db, cfg.EmbedDim)
	if err := chunks.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	auditStore := postgres.NewAuditRepository(db)

	queue, err := natsqueue.New(cfg.NATSURL, cfg.NATSQuerySubject, cfg.NATSLogSubject)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init audit queue: %w", err)
	}

	// Warn and above go to the audit stream as well as stdout.
	stdout := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logging.ParseLevel(cfg.LogLevel),
	})
	audit := logging.NewAuditHandler(queue, service, slog.LevelWarn)
	slog.SetDefault(slog.New(logging.NewFanout(stdout, audit)).With("service", service))

	executor := resilience.NewExecutor(resilience.DefaultPolicy())
	llm := openai.New(openai.Options{
		BaseURL:    cfg.OpenAIBaseURL,
		APIKey:     cfg.OpenAIAPIKey,
		EmbedModel: cfg.EmbedModel,
		ChatModel:  cfg.ChatModel,
		Executor:   executor,
	})
	embedder := openai.NewEmbedder(llm)
	generator := openai.NewGenerator(llm)

	counter, err := tokenizer.NewCounter(cfg.EmbedModel)
	if err != nil {
		slog.Warn("tokenizer unavailable, falling back to rune estimate", "error", err)
		counter = &tokenizer.Counter{}
	}
	batcher := usecase.NewBatchEmbedder(embedder, counter, cfg.MaxEmbedTokens)

	fetcher, err := httpfetch.New(cfg.PDFSpoolDir)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init pdf spool: %w", err)
	}

	splitter := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize)

	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	indexUC := usecase.NewIndexDocumentSetUseCase(
		cfg.BookURLs(),
		chunks,
		fetcher,
		pdftext.New(),
		splitter,
		batcher,
		workers,
	)
	askUC := usecase.NewAskUseCase(indexUC, embedder, chunks, generator, queue, cfg.RAGTopK)

	return &App{
		Config: cfg,

		Queue:      queue,
		AuditStore: auditStore,
		AskUC:      askUC,

		ServerMetrics: metrics.NewHTTPServerMetrics(service),
		WorkerMetrics: metrics.NewWorkerMetrics(service),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
