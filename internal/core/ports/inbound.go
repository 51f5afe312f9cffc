package ports

import (
	"context"

	"github.com/avoronov/bookqa/internal/core/domain"
)

// DocumentSetIndexer is the inbound contract for the ingestion pipeline:
// fingerprint the configured document set and make sure its chunks are
// embedded and stored.
type DocumentSetIndexer interface {
	EnsureIndexed(ctx context.Context, userID string) (domain.FileID, error)
}

// QuestionAnswerer is the inbound contract for answering one question over
// the indexed document set.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question, userID string) (*domain.Answer, error)
}
