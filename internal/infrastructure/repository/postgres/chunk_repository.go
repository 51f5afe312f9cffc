package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/avoronov/bookqa/internal/core/domain"
)

type ChunkRepository struct {
	db        *sql.DB
	vectorDim int
}

func NewChunkRepository(db *sql.DB, vectorDim int) *ChunkRepository {
	if vectorDim <= 0 {
		vectorDim = 1536
	}
	return &ChunkRepository{db: db, vectorDim: vectorDim}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ChunkRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026052601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	query := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS pdf_chunks (
	id BIGSERIAL PRIMARY KEY,
	file_id TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding vector(%d) NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	user_id TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_pdf_chunks_file_id ON pdf_chunks(file_id);

CREATE TABLE IF NOT EXISTS queries (
	id BIGSERIAL PRIMARY KEY,
	file_id TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	degraded BOOLEAN NOT NULL DEFAULT FALSE,
	user_id TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS logs (
	id UUID PRIMARY KEY,
	ts TIMESTAMPTZ NOT NULL,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	module TEXT NOT NULL,
	user_id TEXT
);

CREATE OR REPLACE FUNCTION match_pdf_chunks(
	query_embedding vector(%d),
	match_count INT,
	match_file_id TEXT
) RETURNS TABLE(file_id TEXT, content TEXT, similarity DOUBLE PRECISION)
LANGUAGE sql STABLE AS $fn$
	SELECT c.file_id, c.content, 1 - (c.embedding <=> query_embedding) AS similarity
	FROM pdf_chunks c
	WHERE c.file_id = match_file_id
	ORDER BY c.embedding <=> query_embedding
	LIMIT match_count;
$fn$;
`, r.vectorDim, r.vectorDim)

	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// HasFileID is the reprocessing gate: true when at least one chunk row for
// fileID exists. A storage error propagates; it is never read as "absent".
func (r *ChunkRepository) HasFileID(ctx context.Context, fileID domain.FileID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS(SELECT 1 FROM pdf_chunks WHERE file_id = $1 LIMIT 1)
`, fileID.String()).Scan(&exists)
	if err != nil {
		return false, domain.WrapError(domain.ErrStorageUnavailable, "check file id", err)
	}
	return exists, nil
}

func (r *ChunkRepository) InsertChunks(
	ctx context.Context,
	fileID domain.FileID,
	userID string,
	segments []domain.Segment,
	vectors [][]float32,
) error {
	if len(segments) != len(vectors) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"insert chunks",
			fmt.Errorf("segments/vectors mismatch: %d/%d", len(segments), len(vectors)),
		)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "insert chunks", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, segment := range segments {
		metadata, err := json.Marshal(segment.Metadata)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO pdf_chunks (file_id, content, embedding, metadata, user_id)
VALUES ($1, $2, $3, $4, $5)
`, fileID.String(), segment.Content, pgvector.NewVector(vectors[i]), metadata, userID)
		if err != nil {
			return domain.WrapError(domain.ErrStorageUnavailable, "insert chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "insert chunks", err)
	}
	return nil
}

// MatchChunks runs the stored similarity function scoped to fileID and
// returns up to matchCount rows, best match first.
func (r *ChunkRepository) MatchChunks(
	ctx context.Context,
	queryVector []float32,
	matchCount int,
	fileID domain.FileID,
) ([]domain.RetrievedChunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT file_id, content, similarity FROM match_pdf_chunks($1, $2, $3)
`, pgvector.NewVector(queryVector), matchCount, fileID.String())
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "match chunks", err)
	}
	defer rows.Close()

	var out []domain.RetrievedChunk
	for rows.Next() {
		var chunk domain.RetrievedChunk
		var id string
		if err := rows.Scan(&id, &chunk.Content, &chunk.Similarity); err != nil {
			return nil, domain.WrapError(domain.ErrStorageUnavailable, "scan matched chunk", err)
		}
		chunk.FileID = domain.FileID(id)
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "iterate matched chunks", err)
	}
	return out, nil
}
