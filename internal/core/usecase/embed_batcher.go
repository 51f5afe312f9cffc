package usecase

import (
	"context"
	"fmt"

	"github.com/avoronov/bookqa/internal/core/domain"
	"github.com/avoronov/bookqa/internal/core/ports"
)

// BatchEmbedder groups segments into token-budgeted embedding calls. The
// concatenation of all batch results, in flush order, matches the input
// segment order exactly.
type BatchEmbedder struct {
	embedder  ports.Embedder
	counter   ports.TokenCounter
	maxTokens int
}

func NewBatchEmbedder(embedder ports.Embedder, counter ports.TokenCounter, maxTokens int) *BatchEmbedder {
	if maxTokens <= 0 {
		maxTokens = 300000
	}
	return &BatchEmbedder{
		embedder:  embedder,
		counter:   counter,
		maxTokens: maxTokens,
	}
}

// EmbedSegments returns one vector per segment, order-aligned with the
// input. Any embedding failure aborts the whole operation; partial results
// are discarded so callers never persist an incomplete set.
func (b *BatchEmbedder) EmbedSegments(ctx context.Context, segments []domain.Segment) ([][]float32, error) {
	if len(segments) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, 0, len(segments))
	batch := make([]string, 0, len(segments))
	tokenCount := 0

	for _, segment := range segments {
		tokens := b.counter.Count(segment.Content)
		if tokenCount+tokens > b.maxTokens && len(batch) > 0 {
			flushed, err := b.flush(ctx, batch)
			if err != nil {
				return nil, err
			}
			vectors = append(vectors, flushed...)
			batch = batch[:0]
			tokenCount = 0
		}
		// A single segment over the ceiling still forms its own batch;
		// the ceiling is irreducible below one segment.
		batch = append(batch, segment.Content)
		tokenCount += tokens
	}

	if len(batch) > 0 {
		flushed, err := b.flush(ctx, batch)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, flushed...)
	}

	return vectors, nil
}

func (b *BatchEmbedder) flush(ctx context.Context, batch []string) ([][]float32, error) {
	flushed, err := b.embedder.Embed(ctx, batch)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingFailed, "embed batch", err)
	}
	if len(flushed) != len(batch) {
		return nil, domain.WrapError(
			domain.ErrEmbeddingFailed,
			"embed batch",
			fmt.Errorf("vectors/texts mismatch: %d/%d", len(flushed), len(batch)),
		)
	}
	return flushed, nil
}
