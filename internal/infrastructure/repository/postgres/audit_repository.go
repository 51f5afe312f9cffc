package postgres

import (
	"context"
	"database/sql"

	"github.com/avoronov/bookqa/internal/core/domain"
)

// AuditRepository persists drained audit events: answered queries and remote
// log records.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) InsertQueryRecord(ctx context.Context, record domain.QueryRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO queries (file_id, question, answer, degraded, user_id)
VALUES ($1, $2, $3, $4, $5)
`, record.FileID.String(), record.Question, record.Answer, record.Degraded, record.UserID)
	if err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "insert query record", err)
	}
	return nil
}

func (r *AuditRepository) InsertLogRecord(ctx context.Context, record domain.LogRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO logs (id, ts, level, message, module, user_id)
VALUES ($1, $2, $3, $4, $5, $6)
`, record.ID, record.Timestamp, record.Level, record.Message, record.Module, record.UserID)
	if err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "insert log record", err)
	}
	return nil
}
