package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/avoronov/bookqa/internal/bootstrap"
	"github.com/avoronov/bookqa/internal/config"
	"github.com/avoronov/bookqa/internal/core/domain"
	"github.com/avoronov/bookqa/internal/core/ports"
	"github.com/avoronov/bookqa/internal/observability/metrics"
)

// meteredAuditStore counts persisted audit events around the real store.
type meteredAuditStore struct {
	store   ports.AuditStore
	metrics *metrics.WorkerMetrics
}

func (s meteredAuditStore) InsertQueryRecord(ctx context.Context, record domain.QueryRecord) error {
	err := s.store.InsertQueryRecord(ctx, record)
	s.metrics.ObserveAuditEvent("query", err)
	return err
}

func (s meteredAuditStore) InsertLogRecord(ctx context.Context, record domain.LogRecord) error {
	err := s.store.InsertLogRecord(ctx, record)
	s.metrics.ObserveAuditEvent("log", err)
	return err
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "bookqa-worker")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", app.WorkerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:        ":" + cfg.WorkerMetricsPort,
		Handler:     metricsMux,
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("worker metrics listening on :%s", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()

	store := meteredAuditStore{store: app.AuditStore, metrics: app.WorkerMetrics}
	log.Printf("worker subscribed to %s and %s", cfg.NATSQuerySubject, cfg.NATSLogSubject)
	if err := app.Queue.SubscribeAudit(ctx, store); err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
