package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avoronov/bookqa/internal/core/domain"
	"github.com/avoronov/bookqa/internal/core/ports"
)

// AuditHandler is an slog.Handler that forwards every record to the audit
// publisher for persistence in the remote logs table. It is injected next to
// the stdout handler instead of being registered globally, so the pipeline
// itself never depends on it.
type AuditHandler struct {
	publisher ports.AuditPublisher
	module    string
	level     slog.Level
	attrs     []slog.Attr
}

func NewAuditHandler(publisher ports.AuditPublisher, module string, level slog.Level) *AuditHandler {
	return &AuditHandler{
		publisher: publisher,
		module:    module,
		level:     level,
	}
}

func (h *AuditHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *AuditHandler) Handle(ctx context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	entry := domain.LogRecord{
		ID:        uuid.NewString(),
		Timestamp: ts.UTC(),
		Level:     record.Level.String(),
		Message:   record.Message,
		Module:    h.module,
		UserID:    h.userID(record),
	}
	return h.publisher.PublishLogRecord(ctx, entry)
}

func (h *AuditHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *AuditHandler) WithGroup(string) slog.Handler {
	// Groups carry no meaning for the flat logs table.
	return h
}

func (h *AuditHandler) userID(record slog.Record) string {
	userID := ""
	for _, attr := range h.attrs {
		if attr.Key == "user_id" {
			userID = attr.Value.String()
		}
	}
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == "user_id" {
			userID = attr.Value.String()
			return false
		}
		return true
	})
	return userID
}

// Fanout duplicates records across handlers, typically stdout JSON plus the
// audit stream.
type Fanout struct {
	handlers []slog.Handler
}

func NewFanout(handlers ...slog.Handler) *Fanout {
	return &Fanout{handlers: handlers}
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *Fanout) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &Fanout{handlers: next}
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &Fanout{handlers: next}
}
