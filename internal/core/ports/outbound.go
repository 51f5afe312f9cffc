package ports

import (
	"context"

	"github.com/avoronov/bookqa/internal/core/domain"
)

// DocumentFetcher downloads source documents and returns local spool paths.
// A locator that cannot be fetched contributes no path; the slice keeps the
// order of the locators that succeeded.
type DocumentFetcher interface {
	Fetch(ctx context.Context, locators []string) ([]string, error)
}

// TextExtractor pulls plain text out of one downloaded document.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Chunker splits extracted text into bounded overlapping segments.
type Chunker interface {
	Chunk(text string) []domain.Segment
}

// TokenCounter estimates the model-token cost of a piece of text.
type TokenCounter interface {
	Count(text string) int
}

// Embedder turns text into fixed-dimensionality vectors, one per input,
// order-aligned with the input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkStore persists embedded segments and answers the existence and
// similarity queries scoped to a FileID.
type ChunkStore interface {
	HasFileID(ctx context.Context, fileID domain.FileID) (bool, error)
	InsertChunks(ctx context.Context, fileID domain.FileID, userID string, segments []domain.Segment, vectors [][]float32) error
	MatchChunks(ctx context.Context, queryVector []float32, matchCount int, fileID domain.FileID) ([]domain.RetrievedChunk, error)
}

// AnswerGenerator produces the final answer text from a composed prompt.
type AnswerGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AuditPublisher hands query records and log records to the audit stream.
// Publishing is fire-and-forget from the request path's point of view.
type AuditPublisher interface {
	PublishQueryRecord(ctx context.Context, record domain.QueryRecord) error
	PublishLogRecord(ctx context.Context, record domain.LogRecord) error
}

// AuditStore persists drained audit events.
type AuditStore interface {
	InsertQueryRecord(ctx context.Context, record domain.QueryRecord) error
	InsertLogRecord(ctx context.Context, record domain.LogRecord) error
}
