package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/avoronov/bookqa/internal/core/domain"
)

type publisherFake struct {
	logs    []domain.LogRecord
	queries []domain.QueryRecord
	err     error
}

func (f *publisherFake) PublishQueryRecord(_ context.Context, record domain.QueryRecord) error {
	f.queries = append(f.queries, record)
	return f.err
}

func (f *publisherFake) PublishLogRecord(_ context.Context, record domain.LogRecord) error {
	f.logs = append(f.logs, record)
	return f.err
}

func TestAuditHandlerForwardsRecords(t *testing.T) {
	publisher := &publisherFake{}
	logger := slog.New(NewAuditHandler(publisher, "pipeline", slog.LevelInfo))

	logger.Info("embeddings_stored", "user_id", "user-1", "count", 12)

	if len(publisher.logs) != 1 {
		t.Fatalf("expected 1 published log record, got %d", len(publisher.logs))
	}
	record := publisher.logs[0]
	if record.Message != "embeddings_stored" {
		t.Fatalf("unexpected message: %s", record.Message)
	}
	if record.Level != "INFO" {
		t.Fatalf("unexpected level: %s", record.Level)
	}
	if record.Module != "pipeline" {
		t.Fatalf("unexpected module: %s", record.Module)
	}
	if record.UserID != "user-1" {
		t.Fatalf("expected user_id from attrs, got %q", record.UserID)
	}
	if record.ID == "" || record.Timestamp.IsZero() {
		t.Fatalf("expected populated id and timestamp: %+v", record)
	}
}

func TestAuditHandlerLevelGate(t *testing.T) {
	publisher := &publisherFake{}
	logger := slog.New(NewAuditHandler(publisher, "pipeline", slog.LevelWarn))

	logger.Info("too_low")
	logger.Warn("kept")

	if len(publisher.logs) != 1 || publisher.logs[0].Message != "kept" {
		t.Fatalf("expected only the warn record, got %+v", publisher.logs)
	}
}

func TestAuditHandlerWithAttrsCarriesUserID(t *testing.T) {
	publisher := &publisherFake{}
	logger := slog.New(NewAuditHandler(publisher, "pipeline", slog.LevelInfo)).With("user_id", "user-9")

	logger.Info("scoped")

	if len(publisher.logs) != 1 || publisher.logs[0].UserID != "user-9" {
		t.Fatalf("expected user_id from bound attrs, got %+v", publisher.logs)
	}
}

func TestFanoutReachesAllHandlers(t *testing.T) {
	first := &publisherFake{}
	second := &publisherFake{}
	logger := slog.New(NewFanout(
		NewAuditHandler(first, "api", slog.LevelInfo),
		NewAuditHandler(second, "api", slog.LevelInfo),
	))

	logger.Info("fanned_out")

	if len(first.logs) != 1 || len(second.logs) != 1 {
		t.Fatalf("expected both handlers to receive the record: %d/%d", len(first.logs), len(second.logs))
	}
}
